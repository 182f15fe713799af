package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"recap/internal/models"
	"recap/internal/progress"
)

type recordingStore struct {
	lastMessage string
	lastPercent *int
	err         error
}

func (r *recordingStore) UpdateProgress(_ context.Context, _ uuid.UUID, message string, percent *int) error {
	if r.err != nil {
		return r.err
	}
	r.lastMessage = message
	r.lastPercent = percent
	return nil
}

// Unused JobStore methods.
func (r *recordingStore) CreateJob(context.Context, *models.Job) error { return nil }
func (r *recordingStore) GetJob(context.Context, uuid.UUID) (*models.Job, error) {
	return nil, models.ErrNotFound
}
func (r *recordingStore) ListJobs(context.Context, int, int) ([]*models.Job, error) {
	return nil, nil
}
func (r *recordingStore) ListExpired(context.Context, time.Time) ([]*models.Job, error) {
	return nil, nil
}
func (r *recordingStore) MarkProcessing(context.Context, uuid.UUID) error { return nil }
func (r *recordingStore) MarkCompleted(context.Context, uuid.UUID, string) (bool, error) {
	return true, nil
}
func (r *recordingStore) MarkFailed(context.Context, uuid.UUID, string) (bool, error) {
	return true, nil
}
func (r *recordingStore) SetTaskID(context.Context, uuid.UUID, string) error { return nil }
func (r *recordingStore) DeleteJob(context.Context, uuid.UUID) error         { return nil }
func (r *recordingStore) Ping(context.Context) error                         { return nil }

func TestReportClampsPercent(t *testing.T) {
	s := &recordingStore{}
	r := progress.NewStoreReporter(s)
	ctx := context.Background()
	id := uuid.New()

	r.Report(ctx, id, "over", progress.Percent(150))
	assert.Equal(t, 100, *s.lastPercent)

	r.Report(ctx, id, "under", progress.Percent(-5))
	assert.Equal(t, 0, *s.lastPercent)

	r.Report(ctx, id, "mid", progress.Percent(42))
	assert.Equal(t, 42, *s.lastPercent)
}

func TestReportWithoutPercentKeepsNil(t *testing.T) {
	s := &recordingStore{}
	r := progress.NewStoreReporter(s)

	r.Report(context.Background(), uuid.New(), "message only", nil)

	assert.Equal(t, "message only", s.lastMessage)
	assert.Nil(t, s.lastPercent)
}
