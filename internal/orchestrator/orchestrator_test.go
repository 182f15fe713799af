package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recap/internal/adapters"
	"recap/internal/models"
	"recap/internal/progress"
	"recap/internal/stageerr"
	"recap/internal/store"
)

// --- in-memory job store with the same conditional-transition semantics as
// the pgx store ---

type fakeStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[uuid.UUID]*models.Job{}}
}

func (s *fakeStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *fakeStore) ListJobs(_ context.Context, limit, offset int) ([]*models.Job, error) {
	return nil, nil
}

func (s *fakeStore) ListExpired(_ context.Context, now time.Time) ([]*models.Job, error) {
	return nil, nil
}

func (s *fakeStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.ErrNotFound
	}
	if job.Status != models.JobStatusPending {
		return models.ErrInvalidState
	}
	job.Status = models.JobStatusProcessing
	return nil
}

func (s *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, message string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != models.JobStatusProcessing {
		return false, nil
	}
	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now
	job.ProgressMessage = message
	job.ProgressPercent = 100
	return true, nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return false, nil
	}
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &errorMessage
	return true, nil
}

func (s *fakeStore) UpdateProgress(_ context.Context, id uuid.UUID, message string, percent *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.ErrNotFound
	}
	job.ProgressMessage = message
	if percent != nil {
		job.ProgressPercent = *percent
	}
	return nil
}

func (s *fakeStore) SetTaskID(_ context.Context, id uuid.UUID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.ErrNotFound
	}
	job.TaskID = &taskID
	return nil
}

func (s *fakeStore) DeleteJob(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }

// --- scripted adapters ---

type fakeQueue struct {
	mu        sync.Mutex
	enqueued  []uuid.UUID
	cancelled []string
}

func (q *fakeQueue) EnqueueJob(_ context.Context, job *models.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, job.ID)
	return job.ID.String(), nil
}

func (q *fakeQueue) CancelTask(_ context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, taskID)
	return nil
}

func (q *fakeQueue) Close() error { return nil }

type fakeConverter struct {
	hook func() error
}

func (c *fakeConverter) ConvertToWAV(_ context.Context, _, outputDir string) (string, error) {
	if c.hook != nil {
		if err := c.hook(); err != nil {
			return "", err
		}
	}
	return filepath.Join(outputDir, "audio.wav"), nil
}

type fakeTranscriber struct {
	errs  []error
	calls int32
}

func (t *fakeTranscriber) Transcribe(context.Context, string, string, string) ([]models.Segment, error) {
	n := int(atomic.AddInt32(&t.calls, 1))
	if n <= len(t.errs) && t.errs[n-1] != nil {
		return nil, t.errs[n-1]
	}
	return []models.Segment{{Start: 0, End: 2, Text: "hello"}}, nil
}

type fakeDiarizer struct{}

func (fakeDiarizer) Diarize(context.Context, string, *int, *int) (map[string][]models.Interval, error) {
	return map[string][]models.Interval{"SPEAKER_00": {{Start: 0, End: 5}}}, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(context.Context, string, []string, string) (adapters.Summary, error) {
	return adapters.Summary{Bullet: "## Topic\n- point", Exec: "One paragraph."}, nil
}

type fakeRenderer struct {
	hook func() // runs before the render result is produced
}

func (r *fakeRenderer) Render(_ context.Context, req adapters.RenderRequest) ([]string, error) {
	if r.hook != nil {
		r.hook()
	}
	path := filepath.Join(req.OutputDir, "summary--model.md")
	if err := os.WriteFile(path, []byte("# Executive Summary\n"), 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// --- harness ---

type harness struct {
	store     *fakeStore
	queue     *fakeQueue
	artifacts store.ArtifactStore
	orch      *Orchestrator

	transcriber *fakeTranscriber
	converter   *fakeConverter
	renderer    *fakeRenderer

	sleeps int32
}

func newHarness(t *testing.T, retryLimit int) *harness {
	t.Helper()
	h := &harness{
		store:       newFakeStore(),
		queue:       &fakeQueue{},
		artifacts:   store.NewFSArtifactStore(t.TempDir()),
		transcriber: &fakeTranscriber{},
		converter:   &fakeConverter{},
		renderer:    &fakeRenderer{},
	}
	h.orch = New(
		Config{
			RetryLimit:     retryLimit,
			RetryCooldown:  time.Minute,
			GPUWaitTimeout: 200 * time.Millisecond,
			TempRoot:       t.TempDir(),
		},
		h.store,
		h.artifacts,
		h.queue,
		progress.NewStoreReporter(h.store),
		h.converter,
		h.transcriber,
		fakeDiarizer{},
		fakeSummarizer{},
		h.renderer,
	)
	h.orch.sleep = func(context.Context, time.Duration) error {
		atomic.AddInt32(&h.sleeps, 1)
		return nil
	}
	return h
}

func (h *harness) newAudioJob(t *testing.T) *models.Job {
	t.Helper()
	job, err := models.NewAudioProcessingJob(models.AudioProcessingParams{
		OriginalFilename: "meeting.mp3",
		WhisperModel:     "large",
		SummarizerModel:  "model",
	}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, h.store.CreateJob(context.Background(), job))
	return job
}

func (h *harness) jobState(t *testing.T, id uuid.UUID) *models.Job {
	t.Helper()
	job, err := h.store.GetJob(context.Background(), id)
	require.NoError(t, err)
	return job
}

func TestExecuteTransientFailuresThenSuccess(t *testing.T) {
	h := newHarness(t, 3)
	h.transcriber.errs = []error{
		stageerr.Transientf("engine busy"),
		stageerr.Transientf("engine busy"),
	}
	job := h.newAudioJob(t)

	require.NoError(t, h.orch.Execute(context.Background(), job.ID))

	final := h.jobState(t, job.ID)
	assert.Equal(t, models.JobStatusCompleted, final.Status)
	assert.Equal(t, 100, final.ProgressPercent)
	assert.Equal(t, "Processing completed successfully!", final.ProgressMessage)
	assert.NotNil(t, final.CompletedAt)
	assert.EqualValues(t, 3, atomic.LoadInt32(&h.transcriber.calls))
	assert.EqualValues(t, 2, atomic.LoadInt32(&h.sleeps))
}

func TestExecutePermanentFailureStopsImmediately(t *testing.T) {
	h := newHarness(t, 3)
	h.transcriber.errs = []error{stageerr.Permanentf("unsupported codec")}
	job := h.newAudioJob(t)

	require.NoError(t, h.orch.Execute(context.Background(), job.ID))

	final := h.jobState(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "Processing failed:")
	assert.Contains(t, *final.ErrorMessage, "unsupported codec")
	assert.EqualValues(t, 1, atomic.LoadInt32(&h.transcriber.calls))
	assert.EqualValues(t, 0, atomic.LoadInt32(&h.sleeps))
}

func TestExecuteCanceledStageStopsRetrying(t *testing.T) {
	// A stage error carrying context.Canceled means someone gave up on the
	// job; burning the remaining attempts on it would be pointless.
	h := newHarness(t, 3)
	h.transcriber.errs = []error{fmt.Errorf("transcribe: %w", context.Canceled)}
	job := h.newAudioJob(t)

	require.NoError(t, h.orch.Execute(context.Background(), job.ID))

	final := h.jobState(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&h.transcriber.calls))
	assert.EqualValues(t, 0, atomic.LoadInt32(&h.sleeps))
}

func TestExecuteBudgetExhaustion(t *testing.T) {
	h := newHarness(t, 3)
	h.transcriber.errs = []error{
		stageerr.Transientf("flaky"),
		stageerr.Transientf("flaky"),
		stageerr.Transientf("flaky"),
	}
	job := h.newAudioJob(t)

	require.NoError(t, h.orch.Execute(context.Background(), job.ID))

	final := h.jobState(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	assert.EqualValues(t, 3, atomic.LoadInt32(&h.transcriber.calls))
	assert.EqualValues(t, 2, atomic.LoadInt32(&h.sleeps))
}

func TestCancelPendingJobNeverRuns(t *testing.T) {
	h := newHarness(t, 3)
	job := h.newAudioJob(t)
	ctx := context.Background()

	require.NoError(t, h.orch.Submit(ctx, job))
	require.NoError(t, h.orch.Cancel(ctx, job.ID))

	final := h.jobState(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Equal(t, CancelledByUser, *final.ErrorMessage)
	assert.Equal(t, []string{job.ID.String()}, h.queue.cancelled)

	// The queued task still arrives; it must drop without running a stage.
	require.NoError(t, h.orch.Execute(ctx, job.ID))
	assert.EqualValues(t, 0, atomic.LoadInt32(&h.transcriber.calls))
	assert.Equal(t, CancelledByUser, *h.jobState(t, job.ID).ErrorMessage)
}

func TestCancelTerminalJobRejected(t *testing.T) {
	h := newHarness(t, 1)
	job := h.newAudioJob(t)
	ctx := context.Background()

	require.NoError(t, h.orch.Execute(ctx, job.ID))
	require.Equal(t, models.JobStatusCompleted, h.jobState(t, job.ID).Status)

	err := h.orch.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestLateResultDiscardedAfterConcurrentCancel(t *testing.T) {
	h := newHarness(t, 1)
	job := h.newAudioJob(t)
	ctx := context.Background()

	// Cancellation lands while the attempt is rendering.
	h.renderer.hook = func() {
		_, err := h.store.MarkFailed(ctx, job.ID, CancelledByUser)
		require.NoError(t, err)
	}

	require.NoError(t, h.orch.Execute(ctx, job.ID))

	final := h.jobState(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Equal(t, CancelledByUser, *final.ErrorMessage)
}

func TestExecuteRunsJobsSequentially(t *testing.T) {
	h := newHarness(t, 1)
	h.orch.cfg.GPUWaitTimeout = 5 * time.Second

	var active, maxActive int32
	h.converter.hook = func() error {
		n := atomic.AddInt32(&active, 1)
		for {
			seen := atomic.LoadInt32(&maxActive)
			if n <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	}

	jobA := h.newAudioJob(t)
	jobB := h.newAudioJob(t)

	var wg sync.WaitGroup
	for _, id := range []uuid.UUID{jobA.ID, jobB.ID} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, h.orch.Execute(context.Background(), id))
		}(id)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&maxActive))
	assert.Equal(t, models.JobStatusCompleted, h.jobState(t, jobA.ID).Status)
	assert.Equal(t, models.JobStatusCompleted, h.jobState(t, jobB.ID).Status)
}

func TestExecuteGPUBusyTimeout(t *testing.T) {
	h := newHarness(t, 1)
	job := h.newAudioJob(t)

	h.orch.gpu <- struct{}{} // someone else holds the GPU
	defer func() { <-h.orch.gpu }()

	err := h.orch.Execute(context.Background(), job.ID)
	assert.ErrorIs(t, err, models.ErrResourceBusy)
	assert.Equal(t, models.JobStatusPending, h.jobState(t, job.ID).Status)
}

func TestExecuteCleansTempDir(t *testing.T) {
	tempRoot := t.TempDir()
	h := newHarness(t, 1)
	h.orch.cfg.TempRoot = tempRoot
	job := h.newAudioJob(t)

	require.NoError(t, h.orch.Execute(context.Background(), job.ID))

	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecutePublishesOutputs(t *testing.T) {
	h := newHarness(t, 1)
	job := h.newAudioJob(t)

	require.NoError(t, h.orch.Execute(context.Background(), job.ID))

	outputs, err := h.artifacts.ListOutputs(job)
	require.NoError(t, err)
	names := make([]string, len(outputs))
	for i, f := range outputs {
		names[i] = f.Name
	}
	assert.Contains(t, names, "meeting_transcript.txt")
	assert.Contains(t, names, "summary--model.md")
}

func TestSubmitRejectsNonPending(t *testing.T) {
	h := newHarness(t, 1)
	job := h.newAudioJob(t)
	job.Status = models.JobStatusProcessing

	err := h.orch.Submit(context.Background(), job)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Empty(t, h.queue.enqueued)
}

func TestExecuteUnknownJobDropsTask(t *testing.T) {
	h := newHarness(t, 1)
	require.NoError(t, h.orch.Execute(context.Background(), uuid.New()))
	assert.EqualValues(t, 0, atomic.LoadInt32(&h.transcriber.calls))
}

func TestSubmitRecordsTaskID(t *testing.T) {
	h := newHarness(t, 1)
	job := h.newAudioJob(t)

	require.NoError(t, h.orch.Submit(context.Background(), job))

	stored := h.jobState(t, job.ID)
	require.NotNil(t, stored.TaskID)
	assert.Equal(t, job.ID.String(), *stored.TaskID)
	assert.Equal(t, []uuid.UUID{job.ID}, h.queue.enqueued)
}
