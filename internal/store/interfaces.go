package store

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"recap/internal/models"
)

// --- Job Store ---

// JobStore is the durable record of every processing request. All lifecycle
// mutations go through the conditional updates below so that no two
// execution attempts can race a transition.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*models.Job, error)
	// ListExpired returns jobs whose expires_at has passed.
	ListExpired(ctx context.Context, now time.Time) ([]*models.Job, error)

	// MarkProcessing transitions pending -> processing. Returns
	// models.ErrInvalidState when the job is not pending, models.ErrNotFound
	// when absent. The pending-only guard is what prevents double dispatch.
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	// MarkCompleted transitions processing -> completed, setting
	// completed_at and progress 100. Returns false without error when the
	// job was no longer processing, so a late result for a cancelled job
	// is discarded rather than applied.
	MarkCompleted(ctx context.Context, id uuid.UUID, message string) (bool, error)
	// MarkFailed transitions pending|processing -> failed with the given
	// diagnostic. Returns false when the job was already terminal.
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error)

	UpdateProgress(ctx context.Context, id uuid.UUID, message string, percent *int) error
	SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error
	DeleteJob(ctx context.Context, id uuid.UUID) error

	Ping(ctx context.Context) error
}

// --- Artifact Store ---

// OutputFile describes one downloadable artifact of a completed job.
type OutputFile struct {
	Name      string `json:"filename"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
}

// ArtifactStore resolves and reclaims the files belonging to a job.
// Deletion must tolerate "already deleted" as success.
type ArtifactStore interface {
	InputPath(job *models.Job) string
	OutputDir(job *models.Job) string
	SaveInput(job *models.Job, src io.Reader) error
	EnsureOutputDir(job *models.Job) error
	ListOutputs(job *models.Job) ([]OutputFile, error)
	RemoveJobArtifacts(job *models.Job) error
}

// --- Job Client ---

// JobClient enqueues execution tasks on the single-concurrency gpu queue
// and can request best-effort cancellation of an in-flight task.
type JobClient interface {
	EnqueueJob(ctx context.Context, job *models.Job) (taskID string, err error)
	CancelTask(ctx context.Context, taskID string) error
	Close() error
}
