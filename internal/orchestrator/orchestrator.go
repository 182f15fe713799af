// Package orchestrator drives a job from pending to a terminal state. It
// owns the retry policy, the GPU exclusivity gate and the staging of
// outputs, while the actual engine calls live behind the adapter
// interfaces.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"recap/internal/adapters"
	"recap/internal/fusion"
	"recap/internal/models"
	"recap/internal/progress"
	"recap/internal/stageerr"
	"recap/internal/store"
)

// CancelledByUser is the diagnostic recorded on user-initiated cancellation.
const CancelledByUser = "Cancelled by user"

// Config carries the execution policy knobs.
type Config struct {
	RetryLimit           int
	RetryCooldown        time.Duration
	GPUWaitTimeout       time.Duration
	TranscriptionTimeout time.Duration
	DiarizationTimeout   time.Duration
	SummarizationTimeout time.Duration
	Language             string
	TempRoot             string
}

// Orchestrator executes jobs one at a time. The gpu channel is a size-one
// semaphore backing the single-GPU guarantee inside this process; the
// queue's own concurrency limit enforces it across dispatch.
type Orchestrator struct {
	cfg       Config
	jobs      store.JobStore
	artifacts store.ArtifactStore
	queue     store.JobClient
	reporter  progress.Reporter

	converter   adapters.AudioConverter
	transcriber adapters.Transcriber
	diarizer    adapters.Diarizer
	summarizer  adapters.Summarizer
	renderer    adapters.DocumentRenderer

	gpu   chan struct{}
	sleep func(ctx context.Context, d time.Duration) error
}

func New(
	cfg Config,
	jobs store.JobStore,
	artifacts store.ArtifactStore,
	queue store.JobClient,
	reporter progress.Reporter,
	converter adapters.AudioConverter,
	transcriber adapters.Transcriber,
	diarizer adapters.Diarizer,
	summarizer adapters.Summarizer,
	renderer adapters.DocumentRenderer,
) *Orchestrator {
	if cfg.RetryLimit < 1 {
		cfg.RetryLimit = 1
	}
	return &Orchestrator{
		cfg:         cfg,
		jobs:        jobs,
		artifacts:   artifacts,
		queue:       queue,
		reporter:    reporter,
		converter:   converter,
		transcriber: transcriber,
		diarizer:    diarizer,
		summarizer:  summarizer,
		renderer:    renderer,
		gpu:         make(chan struct{}, 1),
		sleep:       sleepCtx,
	}
}

// Submit enqueues a pending job for execution and records its task handle
// so a later Cancel can reach the queue entry.
func (o *Orchestrator) Submit(ctx context.Context, job *models.Job) error {
	if job.Status != models.JobStatusPending {
		return fmt.Errorf("job %s is %s: %w", job.ID, job.Status, models.ErrInvalidState)
	}

	taskID, err := o.queue.EnqueueJob(ctx, job)
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	if err := o.jobs.SetTaskID(ctx, job.ID, taskID); err != nil {
		return fmt.Errorf("record task id for job %s: %w", job.ID, err)
	}

	log.Infof("Job %s enqueued as task %s", job.ID, taskID)
	return nil
}

// Cancel moves a non-terminal job to failed with the cancellation
// diagnostic, then makes a best-effort attempt to pull the task from the
// queue. A job already completed or failed cannot be cancelled.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) error {
	job, err := o.jobs.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, models.ErrInvalidState)
	}

	applied, err := o.jobs.MarkFailed(ctx, id, CancelledByUser)
	if err != nil {
		return fmt.Errorf("cancel job %s: %w", id, err)
	}
	if !applied {
		return fmt.Errorf("job %s already finished: %w", id, models.ErrInvalidState)
	}

	if job.TaskID != nil {
		if err := o.queue.CancelTask(ctx, *job.TaskID); err != nil {
			log.Warnf("Could not revoke task %s for job %s: %v", *job.TaskID, id, err)
		}
	}

	log.Infof("Job %s cancelled", id)
	return nil
}

// Execute runs a job to a terminal state. Transient stage failures are
// retried with a cooldown up to the retry limit; permanent failures and an
// exhausted budget mark the job failed. A nil return means the job reached
// a terminal state or its result was deliberately discarded; the queue
// must not redeliver.
func (o *Orchestrator) Execute(ctx context.Context, id uuid.UUID) error {
	job, err := o.jobs.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Warnf("Task for unknown job %s, dropping", id)
			return nil
		}
		return err
	}
	if job.Status.IsTerminal() {
		log.Infof("Job %s already %s, dropping task", id, job.Status)
		return nil
	}

	release, err := o.acquireGPU(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := o.jobs.MarkProcessing(ctx, id); err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			log.Infof("Job %s no longer pending, dropping task", id)
			return nil
		}
		return fmt.Errorf("mark job %s processing: %w", id, err)
	}

	var lastErr error
	for attempt := 1; attempt <= o.cfg.RetryLimit; attempt++ {
		if attempt > 1 {
			current, err := o.jobs.GetJob(ctx, id)
			if err == nil && current.Status.IsTerminal() {
				log.Infof("Job %s became %s between attempts, stopping", id, current.Status)
				return nil
			}
			log.Infof("Retrying job %s (attempt %d/%d)", id, attempt, o.cfg.RetryLimit)
		}

		lastErr = o.runOnce(ctx, job)
		if lastErr == nil {
			applied, err := o.jobs.MarkCompleted(ctx, id, "Processing completed successfully!")
			if err != nil {
				return fmt.Errorf("mark job %s completed: %w", id, err)
			}
			if !applied {
				log.Infof("Job %s finished elsewhere, discarding late result", id)
			}
			return nil
		}

		log.Errorf("Job %s attempt %d/%d failed: %v", id, attempt, o.cfg.RetryLimit, lastErr)

		if !stageerr.IsTransient(lastErr) || ctx.Err() != nil {
			break
		}
		if attempt < o.cfg.RetryLimit {
			if err := o.sleep(ctx, o.cfg.RetryCooldown); err != nil {
				break
			}
		}
	}

	applied, err := o.jobs.MarkFailed(ctx, id, fmt.Sprintf("Processing failed: %v", lastErr))
	if err != nil {
		return fmt.Errorf("mark job %s failed: %w", id, err)
	}
	if !applied {
		log.Infof("Job %s finished elsewhere, discarding failure", id)
	}
	return nil
}

func (o *Orchestrator) acquireGPU(ctx context.Context) (func(), error) {
	wait := ctx
	if o.cfg.GPUWaitTimeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, o.cfg.GPUWaitTimeout)
		defer cancel()
	}

	select {
	case o.gpu <- struct{}{}:
		return func() { <-o.gpu }, nil
	case <-wait.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("gpu not released within %s: %w", o.cfg.GPUWaitTimeout, models.ErrResourceBusy)
	}
}

// runOnce is a single attempt. All intermediate files go to a private temp
// directory; only a fully successful attempt copies results into the
// job's output directory.
func (o *Orchestrator) runOnce(ctx context.Context, job *models.Job) (err error) {
	tempDir, err := os.MkdirTemp(o.cfg.TempRoot, fmt.Sprintf("recap_job_%s_", job.ID))
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			log.Warnf("Failed to clean up temp dir %s: %v", tempDir, rmErr)
		}
	}()

	if err := o.artifacts.EnsureOutputDir(job); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	switch job.Kind {
	case models.JobKindAudioProcessing:
		return o.runAudioPipeline(ctx, job, tempDir)
	case models.JobKindTranscriptSummary:
		return o.runTranscriptPipeline(ctx, job, tempDir)
	default:
		return stageerr.Permanentf("unknown job kind %q", job.Kind)
	}
}

func (o *Orchestrator) runAudioPipeline(ctx context.Context, job *models.Job, tempDir string) error {
	input := o.artifacts.InputPath(job)
	outputDir := o.artifacts.OutputDir(job)

	o.reporter.Report(ctx, job.ID, "Converting audio format...", progress.Percent(10))
	wavPath, err := withTimeout(ctx, o.cfg.TranscriptionTimeout, func(ctx context.Context) (string, error) {
		return o.converter.ConvertToWAV(ctx, input, tempDir)
	})
	if err != nil {
		return err
	}

	o.reporter.Report(ctx, job.ID, fmt.Sprintf("Transcribing with %s model...", job.WhisperModel), progress.Percent(20))
	segments, err := withTimeout(ctx, o.cfg.TranscriptionTimeout, func(ctx context.Context) ([]models.Segment, error) {
		return o.transcriber.Transcribe(ctx, wavPath, job.WhisperModel, o.cfg.Language)
	})
	if err != nil {
		return err
	}

	var turns map[string][]models.Interval
	if job.EnableDiarization {
		o.reporter.Report(ctx, job.ID, "Performing speaker diarization...", progress.Percent(50))
		turns, err = withTimeout(ctx, o.cfg.DiarizationTimeout, func(ctx context.Context) (map[string][]models.Interval, error) {
			return o.diarizer.Diarize(ctx, wavPath, job.MinSpeakers, job.MaxSpeakers)
		})
		if err != nil {
			return err
		}
	}

	o.reporter.Report(ctx, job.ID, "Creating transcript...", progress.Percent(60))
	base := strings.TrimSuffix(job.OriginalFilename, filepath.Ext(job.OriginalFilename))
	var (
		transcript     string
		transcriptName string
	)
	if job.EnableDiarization {
		fused := fusion.Merge(segments, turns, fusion.DefaultTolerance)
		transcript = formatDiarizedTranscript(fused)
		transcriptName = base + "_diarized_transcript.txt"
	} else {
		transcript = formatTranscript(segments)
		transcriptName = base + "_transcript.txt"
	}
	transcriptPath := filepath.Join(tempDir, transcriptName)
	if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	o.reporter.Report(ctx, job.ID, fmt.Sprintf("Generating summary with %s...", job.SummarizerModel), progress.Percent(70))
	summary, err := withTimeout(ctx, o.cfg.SummarizationTimeout, func(ctx context.Context) (adapters.Summary, error) {
		return o.summarizer.Summarize(ctx, transcript, nil, job.SummarizerModel)
	})
	if err != nil {
		return err
	}

	docs, err := o.renderer.Render(ctx, adapters.RenderRequest{
		Title:     job.Title,
		Date:      time.Now(),
		Summary:   summary,
		Model:     job.SummarizerModel,
		Format:    job.OutputFormat,
		OutputDir: tempDir,
	})
	if err != nil {
		return err
	}

	o.reporter.Report(ctx, job.ID, "Saving results...", progress.Percent(90))
	return publishOutputs(outputDir, append([]string{transcriptPath}, docs...))
}

func (o *Orchestrator) runTranscriptPipeline(ctx context.Context, job *models.Job, tempDir string) error {
	input := o.artifacts.InputPath(job)
	outputDir := o.artifacts.OutputDir(job)

	o.reporter.Report(ctx, job.ID, fmt.Sprintf("Processing transcript with %s...", job.SummarizerModel), progress.Percent(30))
	transcript, participants, err := adapters.LoadTranscript(input)
	if err != nil {
		return err
	}

	summary, err := withTimeout(ctx, o.cfg.SummarizationTimeout, func(ctx context.Context) (adapters.Summary, error) {
		return o.summarizer.Summarize(ctx, transcript, participants, job.SummarizerModel)
	})
	if err != nil {
		return err
	}

	docs, err := o.renderer.Render(ctx, adapters.RenderRequest{
		Title:        job.Title,
		Date:         time.Now(),
		Summary:      summary,
		Participants: participants,
		Model:        job.SummarizerModel,
		Format:       job.OutputFormat,
		OutputDir:    tempDir,
	})
	if err != nil {
		return err
	}

	o.reporter.Report(ctx, job.ID, "Saving results...", progress.Percent(80))
	return publishOutputs(outputDir, docs)
}

// withTimeout bounds one stage call. A deadline hit surfaces as a transient
// error through the executor's context check.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	stageCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(stageCtx)
}

func formatTranscript(segments []models.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&sb, "%.2f --> %.2f\n%s\n\n", seg.Start, seg.End, seg.Text)
	}
	return sb.String()
}

func formatDiarizedTranscript(segments []models.DiarizedSegment) string {
	var sb strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&sb, "%s (%.2f --> %.2f):\n%s\n\n", seg.Speaker, seg.Start, seg.End, seg.Text)
	}
	return sb.String()
}

func publishOutputs(outputDir string, paths []string) error {
	for _, src := range paths {
		dst := filepath.Join(outputDir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("publish %s: %w", filepath.Base(src), err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
