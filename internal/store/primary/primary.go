// Package primary implements the Postgres-backed job store.
package primary

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"recap/internal/store"
)

type StoreImpl struct {
	db *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the jobs schema exists.
func NewStore(ctx context.Context, dsn string) (*StoreImpl, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &StoreImpl{db: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *StoreImpl) ensureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			original_filename TEXT NOT NULL DEFAULT '',
			whisper_model TEXT NOT NULL DEFAULT '',
			summarizer_model TEXT NOT NULL DEFAULT '',
			enable_diarization BOOLEAN NOT NULL DEFAULT FALSE,
			min_speakers INT,
			max_speakers INT,
			output_format TEXT NOT NULL DEFAULT 'pdf',
			input_path TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			progress_percent INT NOT NULL DEFAULT 0,
			progress_message TEXT NOT NULL DEFAULT '',
			error_message TEXT,
			task_id TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_expires_at ON jobs (expires_at);
		CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);`

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure jobs schema: %w", err)
	}
	return nil
}

func (s *StoreImpl) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *StoreImpl) Close() {
	s.db.Close()
}

var _ store.JobStore = (*StoreImpl)(nil)
