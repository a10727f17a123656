package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// ==================== SchedulerStore Tests ====================

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	task := &domain.ScheduledTask{
		ID:          domain.TaskIDOAuthRefresh,
		Name:        "OAuth Token Refresh",
		Interval:    45 * time.Minute,
		LastRun:     now.Add(-30 * time.Minute),
		NextRun:     now.Add(15 * time.Minute),
		LastSuccess: now.Add(-30 * time.Minute),
		Enabled:     true,
	}
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, domain.TaskIDOAuthRefresh)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, task.Name, retrieved.Name)
	assert.Equal(t, task.Interval, retrieved.Interval)
	assert.True(t, retrieved.Enabled)
	assert.WithinDuration(t, task.LastRun, retrieved.LastRun, time.Millisecond)
	assert.WithinDuration(t, task.NextRun, retrieved.NextRun, time.Millisecond)
	assert.WithinDuration(t, task.LastSuccess, retrieved.LastSuccess, time.Millisecond)
}

func TestSchedulerStore_GetTask_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	task, err := store.SchedulerStore().GetTask(context.Background(), "non-existent")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSchedulerStore_SaveTask_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	task := &domain.ScheduledTask{ID: domain.TaskIDWorkflowPoll, Name: "Workflow Poll", Interval: 5 * time.Minute, Enabled: true}
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	task.Interval = 10 * time.Minute
	task.LastError = "notion unavailable"
	task.Enabled = false
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, domain.TaskIDWorkflowPoll)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, retrieved.Interval)
	assert.Equal(t, "notion unavailable", retrieved.LastError)
	assert.False(t, retrieved.Enabled)
}

func TestSchedulerStore_NilInputs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	assert.ErrorIs(t, store.SchedulerStore().SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SchedulerStore().RecordResult(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_ListAndDeleteTasks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	empty, err := schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, task := range []*domain.ScheduledTask{
		{ID: domain.TaskIDWorkflowPoll, Name: "Workflow Poll", Interval: 5 * time.Minute, Enabled: true},
		{ID: domain.TaskIDOAuthRefresh, Name: "OAuth Token Refresh", Interval: 45 * time.Minute, Enabled: false},
	} {
		require.NoError(t, schedulerStore.SaveTask(ctx, task))
	}

	tasks, err := schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDOAuthRefresh, tasks[0].ID)

	require.NoError(t, schedulerStore.DeleteTask(ctx, domain.TaskIDOAuthRefresh))
	tasks, err = schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestSchedulerStore_TaskWithZeroTimes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()
	require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: "new", Name: "New Task", Interval: time.Hour, Enabled: true}))

	retrieved, err := schedulerStore.GetTask(ctx, "new")
	require.NoError(t, err)
	assert.True(t, retrieved.LastRun.IsZero())
	assert.True(t, retrieved.NextRun.IsZero())
	assert.True(t, retrieved.LastSuccess.IsZero())
	assert.True(t, retrieved.Due(time.Now()), "zero next run is due")
}

func TestSchedulerStore_RecordResultAndHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID: domain.TaskIDWorkflowPoll, StartedAt: now.Add(-5 * time.Minute), EndedAt: now, Success: true, ItemsProcessed: 10,
	}))
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID: domain.TaskIDWorkflowPoll, StartedAt: now, EndedAt: now.Add(time.Minute), Error: "connection timeout",
	}))

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDWorkflowPoll, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.False(t, history[0].Success)
	assert.Equal(t, "connection timeout", history[0].Error)
	assert.True(t, history[1].Success)
	assert.Equal(t, 10, history[1].ItemsProcessed)

	limited, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDWorkflowPoll, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSchedulerStore_PruneHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	for _, taskID := range []string{domain.TaskIDWorkflowPoll, domain.TaskIDOAuthRefresh} {
		for i := 0; i < 10; i++ {
			require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
				TaskID:         taskID,
				StartedAt:      now.Add(time.Duration(i) * time.Minute),
				EndedAt:        now.Add(time.Duration(i)*time.Minute + 30*time.Second),
				Success:        true,
				ItemsProcessed: i + 1,
			}))
		}
	}

	require.NoError(t, schedulerStore.PruneHistory(ctx, 3))

	for _, taskID := range []string{domain.TaskIDWorkflowPoll, domain.TaskIDOAuthRefresh} {
		history, err := schedulerStore.GetTaskHistory(ctx, taskID, 100)
		require.NoError(t, err)
		require.Len(t, history, 3, taskID)
		assert.Equal(t, 10, history[0].ItemsProcessed)
		assert.Equal(t, 8, history[2].ItemsProcessed)
	}
}

// ==================== Helper Function Tests ====================

func TestFormatNullableTime(t *testing.T) {
	assert.Nil(t, formatNullableTime(time.Time{}))

	ts := time.Date(2025, 6, 1, 12, 0, 0, 5000, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2025-06-01T10:00:00.000005Z", formatNullableTime(ts))
	assert.Equal(t, ts.UTC(), parseTime(formatTime(ts)))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "hello", nullString("hello"))
}
