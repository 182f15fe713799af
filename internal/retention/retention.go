// Package retention reclaims jobs whose TTL has passed. A sweep removes
// each expired job's artifacts and then its record; failures are isolated
// per job so one stuck deletion never blocks the rest of the sweep.
package retention

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"recap/internal/store"
)

type Sweeper struct {
	jobs      store.JobStore
	artifacts store.ArtifactStore
	now       func() time.Time
}

func NewSweeper(jobs store.JobStore, artifacts store.ArtifactStore) *Sweeper {
	return &Sweeper{jobs: jobs, artifacts: artifacts, now: time.Now}
}

// Sweep deletes every expired job and returns the number reclaimed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	expired, err := s.jobs.ListExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, job := range expired {
		if err := s.artifacts.RemoveJobArtifacts(job); err != nil {
			log.Errorf("Failed to remove artifacts for expired job %s: %v", job.ID, err)
			continue
		}
		if err := s.jobs.DeleteJob(ctx, job.ID); err != nil {
			log.Errorf("Failed to delete expired job %s: %v", job.ID, err)
			continue
		}
		reclaimed++
	}

	if reclaimed > 0 || len(expired) > 0 {
		log.Infof("Cleaned up %d of %d expired jobs", reclaimed, len(expired))
	}
	return reclaimed, nil
}
