package domain

import (
	"math"
	"time"
)

// StepType classifies an execution log row.
type StepType string

const (
	// StepTrigger rows record failures while reading from the source.
	StepTrigger StepType = "trigger"
	// StepAction rows record failures while acting on a record.
	StepAction StepType = "action"
	// StepExecution rows summarise a whole run.
	StepExecution StepType = "execution"
)

// App values used on log rows that are not tied to a provider.
const (
	AppWorkflow = "workflow"
	AppSystem   = "system"
)

// SystemUserID owns the per-cycle summary rows written by the poll driver.
const SystemUserID = "system"

// ExecutionLog is one persisted row describing a step of a workflow run.
type ExecutionLog struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	WorkflowID  int64     `json:"workflow_id" db:"workflow_id"`
	StepID      *int64    `json:"step_id,omitempty" db:"step_id"`
	StepType    StepType  `json:"step_type" db:"step_type"`
	App         string    `json:"app" db:"app"`
	Description string    `json:"description" db:"description"`
	Success     bool      `json:"success" db:"success"`
	Error       string    `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// WorkflowStats aggregates execution rows for one workflow.
type WorkflowStats struct {
	WorkflowID    int64     `json:"workflow_id"`
	Executions    int       `json:"executions"`
	Successful    int       `json:"successful"`
	Failed        int       `json:"failed"`
	LastExecution time.Time `json:"last_execution"`
}

// Analytics summarises a user's execution history.
type Analytics struct {
	TotalActions      int             `json:"total_actions"`
	SuccessfulActions int             `json:"successful_actions"`
	SuccessRate       float64         `json:"success_rate"`
	Workflows         []WorkflowStats `json:"workflow_stats"`
	RecentActivity    []ExecutionLog  `json:"recent_activity"`
}

// RecentActivityLimit bounds Analytics.RecentActivity.
const RecentActivityLimit = 10

// IsRunSummary reports whether the row is the summary of a whole run
// rather than a trigger failure or a single item.
func (l ExecutionLog) IsRunSummary() bool {
	return l.StepType == StepExecution && l.App == AppWorkflow
}

// BuildAnalytics aggregates rows ordered newest first. Every row counts
// toward the totals; only run summaries count as workflow executions.
func BuildAnalytics(rows []ExecutionLog) Analytics {
	a := Analytics{
		Workflows:      []WorkflowStats{},
		RecentActivity: []ExecutionLog{},
	}

	index := make(map[int64]int)
	for _, row := range rows {
		a.TotalActions++
		if row.Success {
			a.SuccessfulActions++
		}
		if !row.IsRunSummary() {
			continue
		}

		i, ok := index[row.WorkflowID]
		if !ok {
			i = len(a.Workflows)
			index[row.WorkflowID] = i
			a.Workflows = append(a.Workflows, WorkflowStats{WorkflowID: row.WorkflowID})
		}
		stats := &a.Workflows[i]
		stats.Executions++
		if row.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
		if row.CreatedAt.After(stats.LastExecution) {
			stats.LastExecution = row.CreatedAt
		}
	}

	if a.TotalActions > 0 {
		rate := float64(a.SuccessfulActions) / float64(a.TotalActions) * 100
		a.SuccessRate = math.Round(rate*10) / 10
	}

	n := min(len(rows), RecentActivityLimit)
	a.RecentActivity = append(a.RecentActivity, rows[:n]...)
	return a
}
