package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// taskFunc runs one scheduled task and reports how many items it handled.
type taskFunc func(ctx context.Context) (int, error)

// Scheduler manages background task execution: the workflow poll and the
// proactive OAuth refresh. Task state is persisted so a restarted worker
// keeps its cadence.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	runner  driving.WorkflowRunner
	refresh *RefreshSweep
	now     func() time.Time

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	inFlight map[string]bool
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil refresh disables the oauth-refresh task.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	runner driving.WorkflowRunner,
	refresh *RefreshSweep,
) *Scheduler {
	if config.TickInterval <= 0 {
		config.TickInterval = domain.DefaultSchedulerConfig().TickInterval
	}
	return &Scheduler{
		config:   config,
		store:    store,
		runner:   runner,
		refresh:  refresh,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. It blocks until ctx is cancelled or
// Stop is called, then waits for in-flight tasks.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logger.Info("scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks", "error", err)
	}

	err := s.run(ctx, stopCh)
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return err
}

// Stop gracefully shuts down the scheduler, waiting for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running || s.stopCh == nil {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	names := map[string]string{
		domain.TaskIDWorkflowPoll: "Workflow Poll",
		domain.TaskIDOAuthRefresh: "OAuth Token Refresh",
	}
	for id, name := range names {
		taskCfg := s.config.GetTaskConfig(id)
		if taskCfg.Interval <= 0 {
			if err := s.disableTask(ctx, id); err != nil {
				return fmt.Errorf("disable task %s: %w", id, err)
			}
			continue
		}
		if err := s.ensureTask(ctx, id, name, taskCfg); err != nil {
			return fmt.Errorf("ensure task %s: %w", id, err)
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store. A new task is due
// immediately so a fresh worker polls on start.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  s.now(),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// disableTask switches off a task left in the store by an earlier start.
func (s *Scheduler) disableTask(ctx context.Context, id string) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil || task == nil || !task.Enabled {
		return err
	}
	task.Enabled = false
	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	// Tasks keep running through a shutdown signal; Start waits for them.
	taskCtx := context.WithoutCancel(ctx)

	s.checkAndRunDueTasks(ctx, taskCtx)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx, taskCtx)
		}
	}
}

// checkAndRunDueTasks starts every due task that is not already running.
func (s *Scheduler) checkAndRunDueTasks(ctx, taskCtx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks", "error", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.Due(now) {
			continue
		}
		fn := s.handler(task.ID)
		if fn == nil {
			continue
		}
		if !s.claim(task.ID) {
			logger.Debug("scheduler: task still running", "task_id", task.ID)
			continue
		}
		s.runTask(taskCtx, &task, fn)
	}
}

func (s *Scheduler) handler(taskID string) taskFunc {
	switch taskID {
	case domain.TaskIDWorkflowPoll:
		if s.runner == nil {
			return nil
		}
		return func(ctx context.Context) (int, error) {
			summary, err := s.runner.RunAllEligible(ctx)
			return summary.UsersRun, err
		}
	case domain.TaskIDOAuthRefresh:
		if s.refresh == nil {
			return nil
		}
		return s.refresh.Run
	default:
		logger.Warn("scheduler: unknown task ID", "task_id", taskID)
		return nil
	}
}

func (s *Scheduler) claim(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[taskID] {
		return false
	}
	s.inFlight[taskID] = true
	return true
}

func (s *Scheduler) release(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, taskID)
}

// runTask executes a single task in the background and records its result.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask, fn taskFunc) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(task.ID)

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		items, err := fn(ctx)
		result.ItemsProcessed = items
		result.EndedAt = s.now()
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
			logger.Warn("scheduler: task failed", "task_id", task.ID, "error", err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task", "task_id", task.ID, "error", saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result", "task_id", task.ID, "error", recordErr)
		}
		if pruneErr := s.store.PruneHistory(ctx, domain.HistoryRetention); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history", "error", pruneErr)
		}
	}()
}
