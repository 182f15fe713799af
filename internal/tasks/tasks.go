package tasks

// Task types and queue names used with Asynq.

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"recap/internal/models"
)

const (
	// TypeProcessAudio runs the full audio pipeline for one job.
	TypeProcessAudio = "pipeline:process_audio"
	// TypeSummarizeTranscript runs the transcript-only pipeline.
	TypeSummarizeTranscript = "pipeline:summarize_transcript"
	// TypeRetentionSweep expires jobs past their TTL.
	TypeRetentionSweep = "retention:sweep"
)

const (
	// QueueGPU is consumed with concurrency 1: both pipeline task types
	// need sole ownership of the accelerator.
	QueueGPU = "gpu"
	// QueueMaintenance carries the retention sweep.
	QueueMaintenance = "maintenance"
)

// JobPayload is the payload of both pipeline task types.
type JobPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// NewJobTask builds the asynq task for a job according to its kind.
func NewJobTask(job *models.Job) (*asynq.Task, error) {
	payload, err := json.Marshal(JobPayload{JobID: job.ID})
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	switch job.Kind {
	case models.JobKindAudioProcessing:
		return asynq.NewTask(TypeProcessAudio, payload), nil
	case models.JobKindTranscriptSummary:
		return asynq.NewTask(TypeSummarizeTranscript, payload), nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// ParseJobPayload decodes a pipeline task payload.
func ParseJobPayload(task *asynq.Task) (JobPayload, error) {
	var p JobPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("unmarshal %s payload: %w", task.Type(), err)
	}
	return p, nil
}
