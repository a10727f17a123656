package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// ==================== ExecutionLogStore Tests ====================

func TestExecutionLogStore_InsertAndListNewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	logs := store.ExecutionLogStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stepID := int64(7)

	entries := []domain.ExecutionLog{
		{ID: "a", UserID: "u1", WorkflowID: 1, StepType: domain.StepExecution, App: domain.AppWorkflow,
			Description: "[Notion to Google] Processed 2 Notion entries, created 2 events", Success: true, CreatedAt: base},
		{ID: "b", UserID: "u1", WorkflowID: 1, StepID: &stepID, StepType: domain.StepAction, App: "google",
			Description: "Failed to create calendar event for: Sync", Error: "item failed", CreatedAt: base.Add(time.Second)},
		{ID: "c", UserID: "u2", WorkflowID: 1, StepType: domain.StepTrigger, App: "notion",
			Description: "Failed to fetch notion entries", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, logs.Insert(ctx, e))
	}

	got, err := logs.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID)
	assert.False(t, got[0].Success)
	assert.Equal(t, "item failed", got[0].Error)
	require.NotNil(t, got[0].StepID)
	assert.Equal(t, int64(7), *got[0].StepID)
	assert.True(t, base.Add(time.Second).Equal(got[0].CreatedAt))

	assert.Equal(t, "a", got[1].ID)
	assert.True(t, got[1].Success)
	assert.Nil(t, got[1].StepID)
	assert.Equal(t, domain.StepExecution, got[1].StepType)
}

func TestExecutionLogStore_ListByUser_Limit(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	logs := store.ExecutionLogStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"1", "2", "3", "4"} {
		require.NoError(t, logs.Insert(ctx, domain.ExecutionLog{
			ID: id, UserID: "u1", WorkflowID: 1, StepType: domain.StepExecution, App: domain.AppWorkflow,
			Description: "run", Success: true, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := logs.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestExecutionLogStore_Insert_InvalidInput(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.ExecutionLogStore().Insert(context.Background(), domain.ExecutionLog{UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExecutionLogStore_FeedsAnalytics(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	logs := store.ExecutionLogStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, logs.Insert(ctx, domain.ExecutionLog{
		ID: "s", UserID: "u1", WorkflowID: 1, StepType: domain.StepExecution, App: domain.AppWorkflow,
		Description: "ok", Success: true, CreatedAt: base,
	}))
	require.NoError(t, logs.Insert(ctx, domain.ExecutionLog{
		ID: "f", UserID: "u1", WorkflowID: 1, StepType: domain.StepAction, App: "google",
		Description: "failed", CreatedAt: base.Add(time.Minute),
	}))

	rows, err := logs.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	a := domain.BuildAnalytics(rows)

	assert.Equal(t, 2, a.TotalActions)
	assert.Equal(t, 50.0, a.SuccessRate)
	require.Len(t, a.Workflows, 1)
	assert.Equal(t, 1, a.Workflows[0].Executions)
}
