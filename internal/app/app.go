// Package app wires the application together. Commands pull a fully
// initialized App out of their context instead of constructing
// dependencies themselves.
package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"recap/internal/adapters"
	"recap/internal/config"
	"recap/internal/orchestrator"
	"recap/internal/progress"
	"recap/internal/retention"
	"recap/internal/store"
	"recap/internal/store/primary"
	"recap/pkg/executor"
)

type App struct {
	Config *config.Config

	JobStore      store.JobStore
	ArtifactStore store.ArtifactStore
	JobClient     store.JobClient

	Orchestrator *orchestrator.Orchestrator
	Sweeper      *retention.Sweeper

	primaryStore *primary.StoreImpl
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg}

	if err := app.initPrimaryStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initJobClient(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initPipeline(); err != nil {
		app.Close()
		return nil, err
	}

	log.Debug("Application initialization complete")
	return app, nil
}

func (a *App) initPrimaryStore(ctx context.Context) error {
	ps, err := primary.NewStore(ctx, a.Config.Database.DSN)
	if err != nil {
		return fmt.Errorf("init job store: %w", err)
	}
	a.primaryStore = ps
	a.JobStore = ps
	a.ArtifactStore = store.NewFSArtifactStore(a.Config.Storage.Root)
	return nil
}

func (a *App) initJobClient() error {
	opt := asynq.RedisClientOpt{
		Addr:     a.Config.Redis.Address,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}
	// The task timeout must cover a full attempt budget, cooldowns included.
	taskTimeout := a.Config.Pipeline.TranscriptionTimeout +
		a.Config.Pipeline.DiarizationTimeout +
		a.Config.Pipeline.SummarizationTimeout +
		a.Config.Pipeline.GPUWaitTimeout
	taskTimeout *= 2
	a.JobClient = store.NewAsynqJobClient(opt, taskTimeout)
	return nil
}

func (a *App) initPipeline() error {
	cfg := a.Config
	exec := executor.New()

	summarizer, err := a.newSummarizer()
	if err != nil {
		return err
	}

	a.Orchestrator = orchestrator.New(
		orchestrator.Config{
			RetryLimit:           cfg.Pipeline.RetryLimit,
			RetryCooldown:        cfg.Pipeline.RetryCooldown,
			GPUWaitTimeout:       cfg.Pipeline.GPUWaitTimeout,
			TranscriptionTimeout: cfg.Pipeline.TranscriptionTimeout,
			DiarizationTimeout:   cfg.Pipeline.DiarizationTimeout,
			SummarizationTimeout: cfg.Pipeline.SummarizationTimeout,
			Language:             cfg.Transcriber.Language,
			TempRoot:             cfg.Storage.Temp,
		},
		a.JobStore,
		a.ArtifactStore,
		a.JobClient,
		progress.NewStoreReporter(a.JobStore),
		adapters.NewFFmpegConverter(exec),
		adapters.NewWhisperTranscriber(exec, cfg.Transcriber.Binary),
		adapters.NewPyannoteDiarizer(exec, cfg.Diarizer.Binary, cfg.Diarizer.HFToken),
		summarizer,
		adapters.NewPandocRenderer(exec, cfg.Document.PandocBinary),
	)

	a.Sweeper = retention.NewSweeper(a.JobStore, a.ArtifactStore)
	return nil
}

func (a *App) newSummarizer() (adapters.Summarizer, error) {
	cfg := a.Config.Summarizer
	switch cfg.Provider {
	case "", "ollama":
		return adapters.NewOllamaSummarizer(cfg.OllamaHost, cfg.MaxChunkChars), nil
	case "gemini":
		return adapters.NewGeminiSummarizer(cfg.GeminiAPIKey, cfg.MaxChunkChars), nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
}

// Close releases external connections. Safe on a partially built App.
func (a *App) Close() {
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			log.Warnf("Error closing job client: %v", err)
		}
	}
	if a.primaryStore != nil {
		a.primaryStore.Close()
	}
}
