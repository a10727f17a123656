package domain

import "fmt"

// RunResult is the outcome of one workflow run for one user.
//
// Success is true whenever the run reached the end of its record set,
// even if individual items failed. Item failures are visible in the
// execution log, not here.
type RunResult struct {
	Success        bool   `json:"success"`
	ItemsProcessed int    `json:"items_processed"`
	ItemsCreated   int    `json:"items_created"`
	Description    string `json:"description"`
	Error          string `json:"error,omitempty"`
}

// FailedRun builds a RunResult for a run aborted by err.
func FailedRun(description string, err error) RunResult {
	r := RunResult{Description: description}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// TaskDescriptor identifies the workflow a task instance runs for.
// It is bound at construction and never changes.
type TaskDescriptor struct {
	WorkflowID   int64
	WorkflowName string
}

// Label renders the descriptor the way summary log rows prefix descriptions.
func (d TaskDescriptor) Label() string {
	return fmt.Sprintf("[%s]", d.WorkflowName)
}

// PollSummary aggregates one pass over all eligible users.
type PollSummary struct {
	UsersConsidered int
	UsersRun        int
	UsersFailed     int
	ItemsProcessed  int
	ItemsCreated    int
}

// Add folds a single run into the summary.
func (s *PollSummary) Add(r RunResult) {
	s.UsersRun++
	if !r.Success {
		s.UsersFailed++
	}
	s.ItemsProcessed += r.ItemsProcessed
	s.ItemsCreated += r.ItemsCreated
}

// Job is an on-demand run request placed on the job queue.
type Job struct {
	WorkflowType string `json:"workflow_type"`
	UserID       string `json:"user_id"`
}
