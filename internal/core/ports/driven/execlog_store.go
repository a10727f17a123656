package driven

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// ExecutionLogStore persists workflow run outcomes.
type ExecutionLogStore interface {
	// Insert appends a row.
	Insert(ctx context.Context, entry domain.ExecutionLog) error

	// ListByUser returns a user's rows newest first.
	// A limit of zero or less returns every row.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.ExecutionLog, error)
}
