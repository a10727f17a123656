package domain

import "time"

// ScheduledTask is one recurring job of the worker: the workflow poll or
// the token refresh sweep. Zero times mean "never".
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty after a successful run.
	LastError string

	Enabled bool
}

// Due reports whether the task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts calendar events created by a poll,
	// or tokens refreshed by the refresh task.
	ItemsProcessed int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TickInterval is how often due tasks are checked.
	TickInterval time.Duration

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig polls every five minutes and refreshes
// expiring tokens every 45 minutes.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		TickInterval: 15 * time.Second,
		TaskConfigs: map[string]TaskConfig{
			TaskIDWorkflowPoll: {
				Enabled:  true,
				Interval: 5 * time.Minute,
			},
			TaskIDOAuthRefresh: {
				Enabled:  true,
				Interval: 45 * time.Minute,
			},
		},
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDWorkflowPoll = "workflow-poll"
	TaskIDOAuthRefresh = "oauth-refresh"
)

// HistoryRetention is how many results are kept per task.
const HistoryRetention = 100
