package driving

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// Task runs one workflow for one user.
type Task interface {
	// Descriptor returns the workflow identity bound at construction.
	Descriptor() domain.TaskDescriptor

	// RequiredProviders lists the integrations a user must hold to be eligible.
	RequiredProviders() []domain.Provider

	// Execute runs the workflow for userID. It never returns an error:
	// systemic failures are reported through RunResult.Success and Error.
	Execute(ctx context.Context, userID string) domain.RunResult
}

// TaskConstructor builds a Task bound to a workflow.
type TaskConstructor func(descriptor domain.TaskDescriptor) Task

// TaskRegistry maps workflow-type keys to task constructors.
type TaskRegistry interface {
	// Register binds typeKey to ctor, replacing any earlier binding.
	Register(typeKey string, ctor TaskConstructor)

	// Create builds a task for typeKey. ok is false for unknown keys.
	Create(typeKey string, workflowID int64, workflowName string) (task Task, ok bool)

	// Types returns registered keys in sorted order.
	Types() []string
}
