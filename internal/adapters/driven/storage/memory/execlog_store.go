package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// Ensure ExecutionLogStore implements the interface.
var _ driven.ExecutionLogStore = (*ExecutionLogStore)(nil)

// ExecutionLogStore is an in-memory implementation of driven.ExecutionLogStore.
type ExecutionLogStore struct {
	mu   sync.RWMutex
	rows []domain.ExecutionLog
}

// NewExecutionLogStore creates an empty log store.
func NewExecutionLogStore() *ExecutionLogStore {
	return &ExecutionLogStore{}
}

// Insert appends a row.
func (s *ExecutionLogStore) Insert(_ context.Context, entry domain.ExecutionLog) error {
	if entry.ID == "" || entry.UserID == "" {
		return fmt.Errorf("execution log needs id and user: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, entry)
	return nil
}

// ListByUser returns a user's rows newest first. Rows with equal
// timestamps keep reverse insertion order.
func (s *ExecutionLogStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ExecutionLog
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].UserID == userID {
			result = append(result, s.rows[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
