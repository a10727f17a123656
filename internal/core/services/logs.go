package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
)

// DefaultLogLimit is the number of rows Recent returns for a limit <= 0.
const DefaultLogLimit = 50

// Ensure LogService implements the interface.
var _ driving.ExecutionLogService = (*LogService)(nil)

// LogService reads execution history.
type LogService struct {
	store driven.ExecutionLogStore
}

// NewLogService creates a log service.
func NewLogService(store driven.ExecutionLogStore) *LogService {
	return &LogService{store: store}
}

// Recent returns a user's latest rows, newest first.
func (s *LogService) Recent(ctx context.Context, userID string, limit int) ([]domain.ExecutionLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	rows, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list logs for %s: %w", userID, err)
	}
	return rows, nil
}

// Analytics aggregates a user's whole history.
func (s *LogService) Analytics(ctx context.Context, userID string) (*domain.Analytics, error) {
	rows, err := s.store.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("list logs for %s: %w", userID, err)
	}
	a := domain.BuildAnalytics(rows)
	return &a, nil
}
