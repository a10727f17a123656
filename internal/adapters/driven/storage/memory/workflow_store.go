package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// Ensure WorkflowStore implements the interface.
var _ driven.WorkflowStore = (*WorkflowStore)(nil)

type activationKey struct {
	userID     string
	workflowID int64
}

// WorkflowStore is an in-memory implementation of driven.WorkflowStore.
// It starts with the built-in workflow, matching the SQL seed.
type WorkflowStore struct {
	mu          sync.RWMutex
	workflows   map[int64]domain.Workflow
	activations map[activationKey]domain.UserWorkflow
	nextID      int64
}

// NewWorkflowStore creates a workflow store holding the default workflow.
func NewWorkflowStore() *WorkflowStore {
	return &WorkflowStore{
		workflows: map[int64]domain.Workflow{
			domain.DefaultWorkflowID: {
				ID:        domain.DefaultWorkflowID,
				Name:      domain.DefaultWorkflowName,
				CreatedAt: time.Now().UTC(),
			},
		},
		activations: make(map[activationKey]domain.UserWorkflow),
		nextID:      domain.DefaultWorkflowID,
	}
}

// Save creates a workflow when ID is zero, otherwise upserts by ID.
func (s *WorkflowStore) Save(_ context.Context, workflow domain.Workflow) error {
	if workflow.Name == "" {
		return fmt.Errorf("workflow needs a name: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if workflow.ID == 0 {
		s.nextID++
		workflow.ID = s.nextID
	} else if workflow.ID > s.nextID {
		s.nextID = workflow.ID
	}
	if existing, ok := s.workflows[workflow.ID]; ok {
		workflow.CreatedAt = existing.CreatedAt
	} else if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = time.Now().UTC()
	}
	s.workflows[workflow.ID] = workflow
	return nil
}

// Get retrieves a workflow by ID.
func (s *WorkflowStore) Get(_ context.Context, id int64) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %d: %w", id, domain.ErrNotFound)
	}
	return &wf, nil
}

// GetByName retrieves a workflow by its exact name.
func (s *WorkflowStore) GetByName(_ context.Context, name string) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, wf := range s.workflows {
		if wf.Name == name {
			return &wf, nil
		}
	}
	return nil, fmt.Errorf("workflow %s: %w", name, domain.ErrNotFound)
}

// List returns all workflows ordered by ID.
func (s *WorkflowStore) List(_ context.Context) ([]domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		result = append(result, wf)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SetActive switches a workflow on or off for a user.
func (s *WorkflowStore) SetActive(_ context.Context, userID string, workflowID int64, active bool) error {
	if userID == "" {
		return fmt.Errorf("user id required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[workflowID]; !ok {
		return fmt.Errorf("workflow %d: %w", workflowID, domain.ErrNotFound)
	}

	key := activationKey{userID, workflowID}
	uw, ok := s.activations[key]
	if !ok {
		uw = domain.UserWorkflow{
			ID:         int64(len(s.activations) + 1),
			UserID:     userID,
			WorkflowID: workflowID,
			CreatedAt:  time.Now().UTC(),
		}
	}
	uw.Active = active
	s.activations[key] = uw
	return nil
}

// ListActive returns the workflows a user has switched on.
func (s *WorkflowStore) ListActive(_ context.Context, userID string) ([]domain.UserWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.UserWorkflow
	for key, uw := range s.activations {
		if key.userID == userID && uw.Active {
			result = append(result, uw)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].WorkflowID < result[j].WorkflowID })
	return result, nil
}
