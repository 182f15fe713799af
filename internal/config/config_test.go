package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recap/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "uploads", cfg.Storage.Root)

	assert.Equal(t, 3, cfg.Pipeline.RetryLimit)
	assert.Equal(t, time.Minute, cfg.Pipeline.RetryCooldown)
	assert.Equal(t, time.Hour, cfg.Pipeline.TranscriptionTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.DiarizationTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.SummarizationTimeout)

	assert.Equal(t, 24*time.Hour, cfg.Retention.JobTTL)
	assert.Equal(t, time.Hour, cfg.Retention.SweepInterval)

	// The gpu queue must stay at concurrency 1; anything else would allow
	// two pipelines on the accelerator at once.
	assert.Equal(t, 1, cfg.Worker.Queues["gpu"])
	assert.Equal(t, 1, cfg.Worker.Queues["maintenance"])

	assert.Equal(t, "whisper", cfg.Transcriber.Binary)
	assert.Equal(t, "large", cfg.Transcriber.DefaultModel)
	assert.Equal(t, "ollama", cfg.Summarizer.Provider)
	assert.Equal(t, 24000, cfg.Summarizer.MaxChunkChars)
	assert.Equal(t, "pandoc", cfg.Document.PandocBinary)
	assert.Equal(t, int64(500*1024*1024), cfg.Upload.MaxBytes)
}
