package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"recap/internal/models"
	"recap/internal/tasks"
)

// AsynqJobClient enqueues pipeline tasks on the gpu queue. Retries are
// handled inside the orchestrator's own attempt loop, so tasks go out with
// MaxRetry 0 and a generous timeout covering the full retry budget.
type AsynqJobClient struct {
	client      *asynq.Client
	inspector   *asynq.Inspector
	taskTimeout time.Duration
}

func NewAsynqJobClient(opt asynq.RedisClientOpt, taskTimeout time.Duration) *AsynqJobClient {
	return &AsynqJobClient{
		client:      asynq.NewClient(opt),
		inspector:   asynq.NewInspector(opt),
		taskTimeout: taskTimeout,
	}
}

// EnqueueJob puts the job's execution task on the gpu queue, FIFO by
// submission order. The task id doubles as the job's external correlation
// id; using the job id makes a duplicate submission a queue-level conflict.
func (c *AsynqJobClient) EnqueueJob(ctx context.Context, job *models.Job) (string, error) {
	task, err := tasks.NewJobTask(job)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(tasks.QueueGPU),
		asynq.TaskID(job.ID.String()),
		asynq.MaxRetry(0),
		asynq.Timeout(c.taskTimeout),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s for job %s: %w", task.Type(), job.ID, err)
	}

	log.Debugf("Enqueued task %s (type=%s queue=%s)", info.ID, task.Type(), info.Queue)
	return info.ID, nil
}

// CancelTask requests termination of an in-flight task. Best-effort: a
// pending task is deleted outright, a running one gets its context
// canceled; the external engine may still run to completion.
func (c *AsynqJobClient) CancelTask(ctx context.Context, taskID string) error {
	if err := c.inspector.DeleteTask(tasks.QueueGPU, taskID); err == nil {
		return nil
	}
	if err := c.inspector.CancelProcessing(taskID); err != nil {
		return fmt.Errorf("cancel task %s: %w", taskID, err)
	}
	return nil
}

func (c *AsynqJobClient) Close() error {
	return c.client.Close()
}

var _ JobClient = (*AsynqJobClient)(nil)
