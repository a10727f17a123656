package driving

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// WorkflowRunner is the entry point the scheduler and on-demand callers use.
type WorkflowRunner interface {
	// RunAllEligible runs the polled workflow for every user holding
	// all of its required integrations.
	RunAllEligible(ctx context.Context) (domain.PollSummary, error)

	// RunOne runs a workflow for a single user. workflowType matches a
	// stored workflow by name or by derived type key.
	// Returns domain.ErrNotFound for an unknown workflow.
	RunOne(ctx context.Context, workflowType, userID string) (*domain.RunResult, error)
}

// JobDispatcher accepts on-demand runs for asynchronous execution.
type JobDispatcher interface {
	// Submit queues a run and returns without waiting for it.
	Submit(ctx context.Context, workflowType, userID string) error
}

// ExecutionLogService reads run history.
type ExecutionLogService interface {
	// Recent returns a user's latest rows, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]domain.ExecutionLog, error)

	// Analytics aggregates a user's history.
	Analytics(ctx context.Context, userID string) (*domain.Analytics, error)
}
