package primary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"recap/internal/models"
)

const jobColumns = `id, kind, status, title, original_filename, whisper_model,
	summarizer_model, enable_diarization, min_speakers, max_speakers,
	output_format, input_path, output_dir, progress_percent, progress_message,
	error_message, task_id, created_at, completed_at, expires_at`

func (s *StoreImpl) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, kind, status, title, original_filename,
			whisper_model, summarizer_model, enable_diarization, min_speakers,
			max_speakers, output_format, input_path, output_dir,
			progress_percent, progress_message, error_message, task_id,
			created_at, completed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20)`

	_, err := s.db.Exec(ctx, query,
		job.ID, job.Kind, job.Status, job.Title, job.OriginalFilename,
		job.WhisperModel, job.SummarizerModel, job.EnableDiarization,
		job.MinSpeakers, job.MaxSpeakers, job.OutputFormat, job.InputPath,
		job.OutputDir, job.ProgressPercent, job.ProgressMessage,
		job.ErrorMessage, job.TaskID, job.CreatedAt, job.CompletedAt,
		job.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *StoreImpl) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

func (s *StoreImpl) ListJobs(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return s.queryJobs(ctx, query, limit, offset)
}

func (s *StoreImpl) ListExpired(ctx context.Context, now time.Time) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE expires_at < $1 ORDER BY expires_at`
	return s.queryJobs(ctx, query, now)
}

// MarkProcessing applies the pending-only admission guard: a job already
// processing (or terminal) is never re-dispatched.
func (s *StoreImpl) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE jobs SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := s.db.Exec(ctx, query, models.JobStatusProcessing, id, models.JobStatusPending)
	if err != nil {
		return fmt.Errorf("mark job %s processing: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
		return models.ErrInvalidState
	}
	return nil
}

func (s *StoreImpl) MarkCompleted(ctx context.Context, id uuid.UUID, message string) (bool, error) {
	query := `UPDATE jobs
		SET status = $1, progress_percent = 100, progress_message = $2,
			completed_at = $3
		WHERE id = $4 AND status = $5`
	tag, err := s.db.Exec(ctx, query,
		models.JobStatusCompleted, message, time.Now().UTC(), id,
		models.JobStatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("mark job %s completed: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *StoreImpl) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	query := `UPDATE jobs
		SET status = $1, error_message = $2, progress_message = $3,
			completed_at = $4
		WHERE id = $5 AND status = ANY($6)`
	tag, err := s.db.Exec(ctx, query,
		models.JobStatusFailed, errorMessage, "Failed", time.Now().UTC(), id,
		[]models.JobStatus{models.JobStatusPending, models.JobStatusProcessing},
	)
	if err != nil {
		return false, fmt.Errorf("mark job %s failed: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateProgress overwrites the latest known progress; updates are simple
// overwrites, not accumulations, so they are safe to interleave with
// execution.
func (s *StoreImpl) UpdateProgress(ctx context.Context, id uuid.UUID, message string, percent *int) error {
	query := `UPDATE jobs
		SET progress_message = $1,
			progress_percent = COALESCE($2, progress_percent)
		WHERE id = $3`
	tag, err := s.db.Exec(ctx, query, message, percent, id)
	if err != nil {
		return fmt.Errorf("update progress for job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *StoreImpl) SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error {
	query := `UPDATE jobs SET task_id = $1 WHERE id = $2`
	tag, err := s.db.Exec(ctx, query, taskID, id)
	if err != nil {
		return fmt.Errorf("set task id for job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *StoreImpl) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

func (s *StoreImpl) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*models.Job, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return jobs, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return jobs, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*models.Job, error) {
	job := &models.Job{}
	err := row.Scan(
		&job.ID, &job.Kind, &job.Status, &job.Title, &job.OriginalFilename,
		&job.WhisperModel, &job.SummarizerModel, &job.EnableDiarization,
		&job.MinSpeakers, &job.MaxSpeakers, &job.OutputFormat, &job.InputPath,
		&job.OutputDir, &job.ProgressPercent, &job.ProgressMessage,
		&job.ErrorMessage, &job.TaskID, &job.CreatedAt, &job.CompletedAt,
		&job.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
