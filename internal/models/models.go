package models

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Output formats accepted for rendered summaries.
var AllowedOutputFormats = map[string]bool{
	"md":   true,
	"pdf":  true,
	"docx": true,
	"html": true,
}

// Job mirrors the jobs table. It is the single source of truth for a
// processing request's lifecycle; the orchestrator holds no job state that
// is not persisted here.
type Job struct {
	ID     uuid.UUID `db:"id"`
	Kind   JobKind   `db:"kind"`
	Status JobStatus `db:"status"`

	// Immutable parameters set at creation.
	Title             string  `db:"title"`
	OriginalFilename  string  `db:"original_filename"`
	WhisperModel      string  `db:"whisper_model"`
	SummarizerModel   string  `db:"summarizer_model"`
	EnableDiarization bool    `db:"enable_diarization"`
	MinSpeakers       *int    `db:"min_speakers"`
	MaxSpeakers       *int    `db:"max_speakers"`
	OutputFormat      string  `db:"output_format"`
	InputPath         string  `db:"input_path"`  // relative to the storage root
	OutputDir         string  `db:"output_dir"`  // relative to the storage root

	// Mutable lifecycle fields.
	ProgressPercent int     `db:"progress_percent"`
	ProgressMessage string  `db:"progress_message"`
	ErrorMessage    *string `db:"error_message"`
	TaskID          *string `db:"task_id"` // asynq task id, for cancellation

	CreatedAt   time.Time  `db:"created_at"`
	CompletedAt *time.Time `db:"completed_at"`
	ExpiresAt   time.Time  `db:"expires_at"`
}

// AudioProcessingParams are the creation parameters for an audio job.
type AudioProcessingParams struct {
	Title             string
	OriginalFilename  string
	WhisperModel      string
	SummarizerModel   string
	EnableDiarization bool
	MinSpeakers       *int
	MaxSpeakers       *int
	OutputFormat      string
}

// TranscriptSummaryParams are the creation parameters for a transcript job.
type TranscriptSummaryParams struct {
	Title            string
	OriginalFilename string
	SummarizerModel  string
	OutputFormat     string
}

// NewAudioProcessingJob validates params and returns a pending job.
// ExpiresAt is fixed at creation and never extended.
func NewAudioProcessingJob(p AudioProcessingParams, ttl time.Duration) (*Job, error) {
	if p.OriginalFilename == "" {
		return nil, fmt.Errorf("original filename is required: %w", ErrInvalidState)
	}
	if p.WhisperModel == "" {
		return nil, fmt.Errorf("whisper model is required: %w", ErrInvalidState)
	}
	if p.SummarizerModel == "" {
		return nil, fmt.Errorf("summarizer model is required: %w", ErrInvalidState)
	}
	if p.MinSpeakers != nil && p.MaxSpeakers != nil && *p.MinSpeakers > *p.MaxSpeakers {
		return nil, fmt.Errorf("min speakers cannot exceed max speakers: %w", ErrInvalidState)
	}
	format, err := normalizeOutputFormat(p.OutputFormat)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := uuid.New()
	return &Job{
		ID:                id,
		Kind:              JobKindAudioProcessing,
		Status:            JobStatusPending,
		Title:             p.Title,
		OriginalFilename:  p.OriginalFilename,
		WhisperModel:      p.WhisperModel,
		SummarizerModel:   p.SummarizerModel,
		EnableDiarization: p.EnableDiarization,
		MinSpeakers:       p.MinSpeakers,
		MaxSpeakers:       p.MaxSpeakers,
		OutputFormat:      format,
		InputPath:         inputPathFor(id, p.OriginalFilename),
		OutputDir:         outputDirFor(id),
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}, nil
}

// NewTranscriptSummaryJob validates params and returns a pending job.
func NewTranscriptSummaryJob(p TranscriptSummaryParams, ttl time.Duration) (*Job, error) {
	if p.OriginalFilename == "" {
		return nil, fmt.Errorf("original filename is required: %w", ErrInvalidState)
	}
	if p.SummarizerModel == "" {
		return nil, fmt.Errorf("summarizer model is required: %w", ErrInvalidState)
	}
	format, err := normalizeOutputFormat(p.OutputFormat)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := uuid.New()
	return &Job{
		ID:               id,
		Kind:             JobKindTranscriptSummary,
		Status:           JobStatusPending,
		Title:            p.Title,
		OriginalFilename: p.OriginalFilename,
		SummarizerModel:  p.SummarizerModel,
		OutputFormat:     format,
		InputPath:        inputPathFor(id, p.OriginalFilename),
		OutputDir:        outputDirFor(id),
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}, nil
}

// Storage layout under the root: jobs/<id>/input/<filename> and
// jobs/<id>/output/. Only the base name of the upload is kept.
func inputPathFor(id uuid.UUID, filename string) string {
	return path.Join("jobs", id.String(), "input", path.Base(filepath.ToSlash(filename)))
}

func outputDirFor(id uuid.UUID) string {
	return path.Join("jobs", id.String(), "output")
}

func normalizeOutputFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = "pdf"
	}
	if !AllowedOutputFormats[f] {
		return "", fmt.Errorf("unsupported output format %q: %w", format, ErrInvalidState)
	}
	return f, nil
}

// IsExpired reports whether the job has aged past its TTL at the given time.
func (j *Job) IsExpired(now time.Time) bool {
	return now.After(j.ExpiresAt)
}

// CanDownload reports whether output artifacts may be served to the user.
func (j *Job) CanDownload(now time.Time) bool {
	return j.Status == JobStatusCompleted && !j.IsExpired(now)
}

// HumanReadableSize formats a byte count for the status projection.
func HumanReadableSize(size int64) string {
	s := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if s < 1024.0 {
			return fmt.Sprintf("%.1f %s", s, unit)
		}
		s /= 1024.0
	}
	return fmt.Sprintf("%.1f TB", s)
}
