package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// workflowStore implements driven.WorkflowStore.
type workflowStore struct {
	store *Store
}

var _ driven.WorkflowStore = (*workflowStore)(nil)

type workflowRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   string         `db:"created_at"`
}

func (r workflowRow) toDomain() domain.Workflow {
	return domain.Workflow{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedAt:   parseTime(r.CreatedAt),
	}
}

type userWorkflowRow struct {
	ID         int64  `db:"id"`
	UserID     string `db:"user_id"`
	WorkflowID int64  `db:"workflow_id"`
	Active     bool   `db:"is_active"`
	CreatedAt  string `db:"created_at"`
}

// Save creates a workflow when ID is zero, otherwise upserts by ID.
func (s *workflowStore) Save(ctx context.Context, workflow domain.Workflow) error {
	if workflow.Name == "" {
		return fmt.Errorf("workflow needs a name: %w", domain.ErrInvalidInput)
	}
	createdAt := workflow.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.store.now()
	}

	var err error
	if workflow.ID == 0 {
		_, err = s.store.db.ExecContext(ctx, s.store.rebind(
			`INSERT INTO workflows (name, description, created_at) VALUES (?, ?, ?)`),
			workflow.Name, nullString(workflow.Description), formatTime(createdAt))
	} else {
		_, err = s.store.db.ExecContext(ctx, s.store.rebind(`
			INSERT INTO workflows (id, name, description, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description
		`), workflow.ID, workflow.Name, nullString(workflow.Description), formatTime(createdAt))
	}
	if err != nil {
		return fmt.Errorf("saving workflow: %w", err)
	}
	return nil
}

// Get retrieves a workflow by ID.
func (s *workflowStore) Get(ctx context.Context, id int64) (*domain.Workflow, error) {
	return s.get(ctx, `SELECT id, name, description, created_at FROM workflows WHERE id = ?`, id)
}

// GetByName retrieves a workflow by its exact name.
func (s *workflowStore) GetByName(ctx context.Context, name string) (*domain.Workflow, error) {
	return s.get(ctx, `SELECT id, name, description, created_at FROM workflows WHERE name = ?`, name)
}

func (s *workflowStore) get(ctx context.Context, query string, arg any) (*domain.Workflow, error) {
	var row workflowRow
	err := s.store.db.GetContext(ctx, &row, s.store.rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %v: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying workflow: %w", err)
	}
	wf := row.toDomain()
	return &wf, nil
}

// List returns all workflows ordered by ID.
func (s *workflowStore) List(ctx context.Context) ([]domain.Workflow, error) {
	var rows []workflowRow
	if err := s.store.db.SelectContext(ctx, &rows,
		`SELECT id, name, description, created_at FROM workflows ORDER BY id`); err != nil {
		return nil, fmt.Errorf("querying workflows: %w", err)
	}

	workflows := make([]domain.Workflow, 0, len(rows))
	for _, row := range rows {
		workflows = append(workflows, row.toDomain())
	}
	return workflows, nil
}

// SetActive switches a workflow on or off for a user.
func (s *workflowStore) SetActive(ctx context.Context, userID string, workflowID int64, active bool) error {
	if userID == "" {
		return fmt.Errorf("user id required: %w", domain.ErrInvalidInput)
	}
	if _, err := s.Get(ctx, workflowID); err != nil {
		return err
	}

	_, err := s.store.db.ExecContext(ctx, s.store.rebind(`
		INSERT INTO user_workflows (user_id, workflow_id, is_active, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, workflow_id) DO UPDATE SET
			is_active = excluded.is_active
	`), userID, workflowID, active, formatTime(s.store.now()))
	if err != nil {
		return fmt.Errorf("saving workflow activation: %w", err)
	}
	return nil
}

// ListActive returns the workflows a user has switched on.
func (s *workflowStore) ListActive(ctx context.Context, userID string) ([]domain.UserWorkflow, error) {
	var rows []userWorkflowRow
	if err := s.store.db.SelectContext(ctx, &rows, s.store.rebind(`
		SELECT id, user_id, workflow_id, is_active, created_at
		FROM user_workflows
		WHERE user_id = ? AND is_active = ?
		ORDER BY workflow_id
	`), userID, true); err != nil {
		return nil, fmt.Errorf("querying workflow activations: %w", err)
	}

	active := make([]domain.UserWorkflow, 0, len(rows))
	for _, row := range rows {
		active = append(active, domain.UserWorkflow{
			ID:         row.ID,
			UserID:     row.UserID,
			WorkflowID: row.WorkflowID,
			Active:     row.Active,
			CreatedAt:  parseTime(row.CreatedAt),
		})
	}
	return active, nil
}
