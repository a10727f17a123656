package api

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// mockRunner implements driving.WorkflowRunner.
type mockRunner struct {
	mu     sync.Mutex
	calls  []domain.Job
	result *domain.RunResult
	err    error
}

func (m *mockRunner) RunAllEligible(_ context.Context) (domain.PollSummary, error) {
	return domain.PollSummary{}, nil
}

func (m *mockRunner) RunOne(_ context.Context, workflowType, userID string) (*domain.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, domain.Job{WorkflowType: workflowType, UserID: userID})
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockDispatcher implements driving.JobDispatcher.
type mockDispatcher struct {
	jobs []domain.Job
	err  error
}

func (m *mockDispatcher) Submit(_ context.Context, workflowType, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, domain.Job{WorkflowType: workflowType, UserID: userID})
	return nil
}

// mockPinger implements driven.Pinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error {
	return m.err
}

// mockLister implements WorkflowLister.
type mockLister []string

func (m mockLister) Types() []string { return m }

// failingLogService implements driving.ExecutionLogService.
type failingLogService struct{}

func (failingLogService) Recent(context.Context, string, int) ([]domain.ExecutionLog, error) {
	return nil, errors.New("store offline")
}

func (failingLogService) Analytics(context.Context, string) (*domain.Analytics, error) {
	return nil, errors.New("store offline")
}
