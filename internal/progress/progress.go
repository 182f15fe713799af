// Package progress is the status-reporting primitive pipeline stages use to
// publish human-readable progress. Updates are persisted immediately so
// polling clients see live state without waiting for stage completion.
package progress

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"recap/internal/store"
)

// Reporter publishes a progress update for a job. Percent is optional and
// clamped to [0, 100]. Reporting never fails the calling stage.
type Reporter interface {
	Report(ctx context.Context, jobID uuid.UUID, message string, percent *int)
}

// Percent is a convenience for literal milestone values.
func Percent(p int) *int {
	return &p
}

// StoreReporter writes progress through the job store.
type StoreReporter struct {
	jobs store.JobStore
}

func NewStoreReporter(jobs store.JobStore) *StoreReporter {
	return &StoreReporter{jobs: jobs}
}

func (r *StoreReporter) Report(ctx context.Context, jobID uuid.UUID, message string, percent *int) {
	if percent != nil {
		clamped := clamp(*percent)
		percent = &clamped
	}
	if err := r.jobs.UpdateProgress(ctx, jobID, message, percent); err != nil {
		log.Warnf("Failed to persist progress for job %s: %v", jobID, err)
	}
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

var _ Reporter = (*StoreReporter)(nil)
