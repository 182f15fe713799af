package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"recap/internal/app"
	"recap/internal/tasks"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background job worker",
	Long: `Starts the Asynq worker process draining the gpu and maintenance
queues. The gpu queue runs with concurrency 1 so at most one pipeline
touches the GPU at a time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get application context: %w", err)
		}
		defer appInstance.Close()
		return runWorker(appInstance)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(appInstance *app.App) error {
	cfg := appInstance.Config

	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues:      cfg.Worker.Queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Errorf("Task failed: type=%s payload=%s err=%v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeProcessAudio, handleJobTask(appInstance))
	mux.HandleFunc(tasks.TypeSummarizeTranscript, handleJobTask(appInstance))
	mux.HandleFunc(tasks.TypeRetentionSweep, func(ctx context.Context, task *asynq.Task) error {
		_, err := appInstance.Sweeper.Sweep(ctx)
		return err
	})

	scheduler := asynq.NewScheduler(redisOpts, nil)
	sweepSpec := fmt.Sprintf("@every %s", cfg.Retention.SweepInterval)
	if _, err := scheduler.Register(
		sweepSpec,
		asynq.NewTask(tasks.TypeRetentionSweep, nil),
		asynq.Queue(tasks.QueueMaintenance),
	); err != nil {
		return fmt.Errorf("register retention sweep: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	log.Infof("Starting worker (concurrency: %d, queues: %v, sweep: %s)",
		cfg.Worker.Concurrency, cfg.Worker.Queues, sweepSpec)
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	log.Info("Shutdown signal received, draining worker")
	srv.Stop()
	srv.Shutdown()
	log.Info("Worker shutdown complete")
	return nil
}

func handleJobTask(appInstance *app.App) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := tasks.ParseJobPayload(task)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return appInstance.Orchestrator.Execute(ctx, payload.JobID)
	}
}
