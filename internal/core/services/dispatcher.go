package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// dequeueRetryDelay spaces out retries while the queue backend is unavailable.
const dequeueRetryDelay = time.Second

// Ensure Dispatcher implements the interface.
var _ driving.JobDispatcher = (*Dispatcher)(nil)

// Dispatcher queues on-demand runs and consumes them with a fixed pool
// of workers, each job being one RunOne call.
type Dispatcher struct {
	queue   driven.JobQueue
	runner  driving.WorkflowRunner
	workers int
}

// NewDispatcher creates a dispatcher. workers <= 0 means one.
func NewDispatcher(queue driven.JobQueue, runner driving.WorkflowRunner, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{queue: queue, runner: runner, workers: workers}
}

// Submit queues a run.
func (d *Dispatcher) Submit(ctx context.Context, workflowType, userID string) error {
	if strings.TrimSpace(workflowType) == "" || strings.TrimSpace(userID) == "" {
		return fmt.Errorf("workflow type and user id are required: %w", domain.ErrInvalidInput)
	}
	job := domain.Job{WorkflowType: workflowType, UserID: userID}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", workflowType, userID, err)
	}
	logger.Info("queued workflow run", "workflow", workflowType, "user_id", userID)
	return nil
}

// Run consumes jobs until ctx is cancelled. Jobs already dequeued finish
// before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.consume(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (d *Dispatcher) consume(ctx context.Context) {
	for {
		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("dequeue failed", "error", err)
			select {
			case <-time.After(dequeueRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}
		d.handle(context.WithoutCancel(ctx), job)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job domain.Job) {
	result, err := d.runner.RunOne(ctx, job.WorkflowType, job.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Warn("workflow not found", "workflow", job.WorkflowType, "user_id", job.UserID)
	case err != nil:
		logger.Error("workflow run failed", "workflow", job.WorkflowType, "user_id", job.UserID, "error", err)
	default:
		logger.Info("workflow run finished",
			"workflow", job.WorkflowType,
			"user_id", job.UserID,
			"success", result.Success,
			"items_created", result.ItemsCreated,
		)
	}
}
