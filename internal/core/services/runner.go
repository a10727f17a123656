package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// DefaultConcurrency bounds how many users a poll runs at once.
const DefaultConcurrency = 4

// Ensure Runner implements the interface.
var _ driving.WorkflowRunner = (*Runner)(nil)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// PollWorkflow is the workflow run for every eligible user on each poll,
	// by name or type key.
	PollWorkflow string
	// Concurrency is the number of users run in parallel.
	Concurrency int
}

// Runner resolves workflows to tasks and runs them for users.
type Runner struct {
	workflows driven.WorkflowStore
	creds     driven.CredentialsStore
	registry  driving.TaskRegistry
	log       *RunLogger
	cfg       RunnerConfig
}

// NewRunner creates a runner.
func NewRunner(
	workflows driven.WorkflowStore,
	creds driven.CredentialsStore,
	registry driving.TaskRegistry,
	log *RunLogger,
	cfg RunnerConfig,
) *Runner {
	if cfg.PollWorkflow == "" {
		cfg.PollWorkflow = domain.DefaultWorkflowName
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Runner{
		workflows: workflows,
		creds:     creds,
		registry:  registry,
		log:       log,
		cfg:       cfg,
	}
}

// RunAllEligible runs the poll workflow for every user holding all of its
// required integrations, then writes one system summary row.
func (r *Runner) RunAllEligible(ctx context.Context) (domain.PollSummary, error) {
	var summary domain.PollSummary

	wf, task, err := r.resolve(ctx, r.cfg.PollWorkflow)
	if err != nil {
		return summary, err
	}
	descriptor := wf.Descriptor()

	users, err := r.eligibleUsers(ctx, task.RequiredProviders())
	if err != nil {
		r.log.Failure(ctx, domain.SystemUserID, descriptor, domain.AppSystem, "Workflow execution failed", err)
		return summary, fmt.Errorf("list eligible users: %w", err)
	}
	summary.UsersConsidered = len(users)
	logger.Info("polling workflow", "workflow", wf.Name, "users", len(users))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.cfg.Concurrency)
	)

	for _, userID := range users {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return summary, ctx.Err()
		}

		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			userTask, ok := r.registry.Create(wf.TypeKey(), wf.ID, wf.Name)
			if !ok {
				return
			}
			result := r.execute(ctx, userTask, userID)
			if !result.Success {
				logger.Warn("task failed", "workflow", wf.Name, "user_id", userID, "error", result.Error)
			}

			mu.Lock()
			summary.Add(result)
			mu.Unlock()
		}(userID)
	}
	wg.Wait()

	succeeded := summary.UsersRun - summary.UsersFailed
	r.log.Summary(ctx, domain.SystemUserID, descriptor,
		fmt.Sprintf("Workflow completed: %d users processed, %d events created", succeeded, summary.ItemsCreated),
		true)

	logger.Info("poll completed",
		"workflow", wf.Name,
		"users_run", summary.UsersRun,
		"users_failed", summary.UsersFailed,
		"items_created", summary.ItemsCreated,
	)
	return summary, nil
}

// RunOne runs one workflow for one user.
func (r *Runner) RunOne(ctx context.Context, workflowType, userID string) (*domain.RunResult, error) {
	_, task, err := r.resolve(ctx, workflowType)
	if err != nil {
		return nil, err
	}
	result := r.execute(ctx, task, userID)
	return &result, nil
}

// resolve finds the stored workflow by name, then by type key, and builds its task.
func (r *Runner) resolve(ctx context.Context, workflowType string) (*domain.Workflow, driving.Task, error) {
	wf, err := r.workflows.GetByName(ctx, workflowType)
	if errors.Is(err, domain.ErrNotFound) {
		wf, err = r.findByTypeKey(ctx, domain.WorkflowTypeKey(workflowType))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("workflow %q: %w", workflowType, err)
	}

	task, ok := r.registry.Create(wf.TypeKey(), wf.ID, wf.Name)
	if !ok {
		return nil, nil, fmt.Errorf("workflow %q has no task for %q: %w", wf.Name, wf.TypeKey(), domain.ErrUnsupportedType)
	}
	return wf, task, nil
}

func (r *Runner) findByTypeKey(ctx context.Context, key string) (*domain.Workflow, error) {
	workflows, err := r.workflows.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range workflows {
		if workflows[i].TypeKey() == key {
			return &workflows[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// eligibleUsers returns, sorted, the users holding every required provider.
func (r *Runner) eligibleUsers(ctx context.Context, required []domain.Provider) ([]string, error) {
	creds, err := r.creds.List(ctx)
	if err != nil {
		return nil, err
	}

	held := make(map[string]map[domain.Provider]bool)
	for _, c := range creds {
		if held[c.UserID] == nil {
			held[c.UserID] = make(map[domain.Provider]bool)
		}
		held[c.UserID][c.Provider] = true
	}

	var users []string
	for userID, providers := range held {
		eligible := true
		for _, p := range required {
			if !providers[p] {
				eligible = false
				break
			}
		}
		if eligible {
			users = append(users, userID)
		}
	}
	sort.Strings(users)
	return users, nil
}

// execute runs a task, turning a panic into a failed result.
func (r *Runner) execute(ctx context.Context, task driving.Task, userID string) (result domain.RunResult) {
	defer func() {
		if rec := recover(); rec != nil {
			d := task.Descriptor()
			err := fmt.Errorf("panic: %v", rec)
			description := "Workflow execution failed: " + d.WorkflowName
			logger.Error("task panicked", "workflow", d.WorkflowName, "user_id", userID, "panic", rec)
			r.log.Failure(ctx, userID, d, domain.AppSystem, description, err)
			result = domain.FailedRun(description, err)
		}
	}()
	return task.Execute(ctx, userID)
}
