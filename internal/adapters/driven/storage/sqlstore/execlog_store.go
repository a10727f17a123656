package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// execLogStore implements driven.ExecutionLogStore over workflow_execution_logs.
type execLogStore struct {
	store *Store
}

var _ driven.ExecutionLogStore = (*execLogStore)(nil)

type execLogRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	WorkflowID  int64          `db:"workflow_id"`
	StepID      sql.NullInt64  `db:"step_id"`
	StepType    string         `db:"step_type"`
	App         string         `db:"app"`
	Description string         `db:"description"`
	Success     bool           `db:"success"`
	Error       sql.NullString `db:"error"`
	CreatedAt   string         `db:"created_at"`
}

// Insert appends a row.
func (s *execLogStore) Insert(ctx context.Context, entry domain.ExecutionLog) error {
	if entry.ID == "" || entry.UserID == "" {
		return fmt.Errorf("execution log needs id and user: %w", domain.ErrInvalidInput)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.store.now()
	}
	var stepID any
	if entry.StepID != nil {
		stepID = *entry.StepID
	}

	_, err := s.store.db.ExecContext(ctx, s.store.rebind(`
		INSERT INTO workflow_execution_logs
			(id, user_id, workflow_id, step_id, step_type, app, description, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), entry.ID, entry.UserID, entry.WorkflowID, stepID, string(entry.StepType),
		entry.App, entry.Description, entry.Success, nullString(entry.Error), formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("inserting execution log: %w", err)
	}
	return nil
}

// ListByUser returns a user's rows newest first.
func (s *execLogStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ExecutionLog, error) {
	query := `
		SELECT id, user_id, workflow_id, step_id, step_type, app, description, success, error, created_at
		FROM workflow_execution_logs
		WHERE user_id = ?
		ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []execLogRow
	if err := s.store.db.SelectContext(ctx, &rows, s.store.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying execution logs: %w", err)
	}

	logs := make([]domain.ExecutionLog, 0, len(rows))
	for _, row := range rows {
		entry := domain.ExecutionLog{
			ID:          row.ID,
			UserID:      row.UserID,
			WorkflowID:  row.WorkflowID,
			StepType:    domain.StepType(row.StepType),
			App:         row.App,
			Description: row.Description,
			Success:     row.Success,
			Error:       row.Error.String,
			CreatedAt:   parseTime(row.CreatedAt),
		}
		if row.StepID.Valid {
			stepID := row.StepID.Int64
			entry.StepID = &stepID
		}
		logs = append(logs, entry)
	}
	return logs, nil
}
