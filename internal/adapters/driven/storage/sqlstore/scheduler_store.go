package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

type scheduledTaskRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	IntervalSeconds int64          `db:"interval_seconds"`
	LastRun         sql.NullString `db:"last_run"`
	NextRun         sql.NullString `db:"next_run"`
	LastError       sql.NullString `db:"last_error"`
	LastSuccess     sql.NullString `db:"last_success"`
	Enabled         bool           `db:"enabled"`
}

func (r scheduledTaskRow) toDomain() domain.ScheduledTask {
	return domain.ScheduledTask{
		ID:          r.ID,
		Name:        r.Name,
		Interval:    time.Duration(r.IntervalSeconds) * time.Second,
		LastRun:     parseNullableTime(r.LastRun),
		NextRun:     parseNullableTime(r.NextRun),
		LastError:   r.LastError.String,
		LastSuccess: parseNullableTime(r.LastSuccess),
		Enabled:     r.Enabled,
	}
}

type taskResultRow struct {
	TaskID         string         `db:"task_id"`
	StartedAt      string         `db:"started_at"`
	EndedAt        string         `db:"ended_at"`
	Success        bool           `db:"success"`
	Error          sql.NullString `db:"error"`
	ItemsProcessed int            `db:"items_processed"`
}

const scheduledTaskColumns = `id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled`

// GetTask retrieves a scheduled task by ID.
// Returns nil and no error if the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	var row scheduledTaskRow
	err := s.store.db.GetContext(ctx, &row, s.store.rebind(
		`SELECT `+scheduledTaskColumns+` FROM scheduled_tasks WHERE id = ?`), taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying scheduled task: %w", err)
	}
	task := row.toDomain()
	return &task, nil
}

// ListTasks returns all scheduled tasks.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	var rows []scheduledTaskRow
	if err := s.store.db.SelectContext(ctx, &rows,
		`SELECT `+scheduledTaskColumns+` FROM scheduled_tasks ORDER BY id`); err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}

	tasks := make([]domain.ScheduledTask, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toDomain())
	}
	return tasks, nil
}

// SaveTask persists a task's state.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, s.store.rebind(`
		INSERT INTO scheduled_tasks (id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled
	`), task.ID, task.Name, int64(task.Interval.Seconds()),
		formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
		nullString(task.LastError), formatNullableTime(task.LastSuccess),
		task.Enabled)
	if err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

// DeleteTask removes a task from storage.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	_, err := s.store.db.ExecContext(ctx, s.store.rebind(`DELETE FROM scheduled_tasks WHERE id = ?`), taskID)
	if err != nil {
		return fmt.Errorf("deleting scheduled task: %w", err)
	}
	return nil
}

// RecordResult logs a task execution result.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, s.store.rebind(`
		INSERT INTO task_results (task_id, started_at, ended_at, success, error, items_processed)
		VALUES (?, ?, ?, ?, ?, ?)
	`), result.TaskID, formatTime(result.StartedAt), formatTime(result.EndedAt),
		result.Success, nullString(result.Error), result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

// GetTaskHistory returns recent results for a task, most recent first.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	var rows []taskResultRow
	if err := s.store.db.SelectContext(ctx, &rows, s.store.rebind(`
		SELECT task_id, started_at, ended_at, success, error, items_processed
		FROM task_results
		WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`), taskID, limit); err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}

	results := make([]domain.TaskResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.TaskResult{
			TaskID:         row.TaskID,
			StartedAt:      parseTime(row.StartedAt),
			EndedAt:        parseTime(row.EndedAt),
			Success:        row.Success,
			Error:          row.Error.String,
			ItemsProcessed: row.ItemsProcessed,
		})
	}
	return results, nil
}

// PruneHistory keeps the most recent 'keep' results per task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, s.store.rebind(`
		DELETE FROM task_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM task_results
			) ranked WHERE rn <= ?
		)
	`), keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}
