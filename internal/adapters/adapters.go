// Package adapters holds the boundary calls into the external engines the
// pipeline depends on: ffmpeg, whisper, the diarization helper, the
// summarization backend and the document renderer. Each adapter is a pure
// input -> output function from the orchestrator's perspective; the
// orchestrator never depends on engine internals.
package adapters

import (
	"context"
	"time"

	"recap/internal/models"
)

// AudioConverter normalizes an uploaded file into canonical 16 kHz mono WAV.
type AudioConverter interface {
	ConvertToWAV(ctx context.Context, inputPath, outputDir string) (string, error)
}

// Transcriber produces time-ordered, non-overlapping transcription segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, modelSize, language string) ([]models.Segment, error)
}

// Diarizer produces speaker turns grouped by speaker label.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string, minSpeakers, maxSpeakers *int) (map[string][]models.Interval, error)
}

// Summary is the two-part output of the summarization backend.
type Summary struct {
	Bullet string // per-topic bullet summary, markdown
	Exec   string // one-paragraph executive summary
}

// Summarizer turns a transcript into a meeting summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, participants []string, model string) (Summary, error)
}

// RenderRequest describes one summary document to produce.
type RenderRequest struct {
	Title        string
	Date         time.Time
	Summary      Summary
	Participants []string
	Model        string
	Format       string // md, pdf, docx, html
	OutputDir    string
}

// DocumentRenderer writes the summary document(s) and returns their paths.
// The markdown source is always written; Format selects the additional
// rendering.
type DocumentRenderer interface {
	Render(ctx context.Context, req RenderRequest) ([]string, error)
}
