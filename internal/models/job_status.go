package models

/*
Job status and kind constants used throughout the codebase.
Centralizing these avoids magic strings and improves maintainability.
*/

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobKind selects the stage sequence a job runs through.
type JobKind string

const (
	// JobKindAudioProcessing runs convert -> transcribe -> (diarize) ->
	// assemble -> summarize -> persist.
	JobKindAudioProcessing JobKind = "audio_processing"
	// JobKindTranscriptSummary runs load-transcript -> summarize -> persist.
	JobKindTranscriptSummary JobKind = "transcript_summary"
)

// IsTerminal reports whether no further transition is defined out of s
// except deletion by the retention sweep.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
