package driven

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// SchedulerStore keeps the poll and refresh-sweep schedule across restarts
// so a worker picks up where the last one stopped.
type SchedulerStore interface {
	// GetTask returns nil, nil for an unknown task.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask upserts by task ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	DeleteTask(ctx context.Context, taskID string) error

	// RecordResult appends one finished poll or sweep.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory lists results newest first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory drops all but the newest keep results of each task.
	PruneHistory(ctx context.Context, keep int) error
}
