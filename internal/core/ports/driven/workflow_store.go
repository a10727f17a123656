package driven

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// WorkflowStore persists the workflow catalogue and user activations.
type WorkflowStore interface {
	// Save creates or updates a workflow by ID.
	Save(ctx context.Context, workflow domain.Workflow) error

	// Get retrieves a workflow by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id int64) (*domain.Workflow, error)

	// GetByName retrieves a workflow by its exact name.
	// Returns domain.ErrNotFound if it does not exist.
	GetByName(ctx context.Context, name string) (*domain.Workflow, error)

	// List returns all workflows ordered by ID.
	List(ctx context.Context) ([]domain.Workflow, error)

	// SetActive switches a workflow on or off for a user.
	SetActive(ctx context.Context, userID string, workflowID int64, active bool) error

	// ListActive returns the workflows a user has switched on.
	ListActive(ctx context.Context, userID string) ([]domain.UserWorkflow, error)
}
