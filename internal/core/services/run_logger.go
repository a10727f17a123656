package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// RunLogger writes execution log rows. A failed write is logged and
// otherwise ignored so that history never decides a run's outcome.
type RunLogger struct {
	store driven.ExecutionLogStore
	now   func() time.Time
}

// NewRunLogger creates a run logger over store.
func NewRunLogger(store driven.ExecutionLogStore) *RunLogger {
	return &RunLogger{store: store, now: time.Now}
}

// Summary records the outcome of a whole run.
func (l *RunLogger) Summary(ctx context.Context, userID string, d domain.TaskDescriptor, description string, success bool) {
	l.write(ctx, domain.ExecutionLog{
		UserID:      userID,
		WorkflowID:  d.WorkflowID,
		StepType:    domain.StepExecution,
		App:         domain.AppWorkflow,
		Description: d.Label() + " " + description,
		Success:     success,
	})
}

// Failure records the error that aborted a run.
func (l *RunLogger) Failure(ctx context.Context, userID string, d domain.TaskDescriptor, app, description string, err error) {
	l.write(ctx, failedEntry(userID, d, domain.StepTrigger, app, description, err))
}

// Item records a record that was skipped or failed.
func (l *RunLogger) Item(ctx context.Context, userID string, d domain.TaskDescriptor, app, description string, err error) {
	l.write(ctx, failedEntry(userID, d, domain.StepAction, app, description, err))
}

func failedEntry(
	userID string, d domain.TaskDescriptor, step domain.StepType, app, description string, err error,
) domain.ExecutionLog {
	entry := domain.ExecutionLog{
		UserID:      userID,
		WorkflowID:  d.WorkflowID,
		StepType:    step,
		App:         app,
		Description: description,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

func (l *RunLogger) write(ctx context.Context, entry domain.ExecutionLog) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = l.now().UTC()

	if err := l.store.Insert(ctx, entry); err != nil {
		logger.Warn("failed to write execution log",
			"user_id", entry.UserID,
			"workflow_id", entry.WorkflowID,
			"description", entry.Description,
			"error", err,
		)
		return
	}

	logger.Debug("execution logged",
		"user_id", entry.UserID,
		"step_type", string(entry.StepType),
		"app", entry.App,
		"success", entry.Success,
		"description", entry.Description,
	)
}
