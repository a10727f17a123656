package domain

import (
	"strings"
	"time"
)

// Built-in workflow identity.
const (
	WorkflowNotionToGoogle     = "notion_to_google"
	DefaultWorkflowID    int64 = 1
	DefaultWorkflowName        = "Notion to Google"
)

// Workflow is a catalogue entry users can activate.
type Workflow struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"-"`
}

// TypeKey returns the registry key derived from the workflow name.
func (w Workflow) TypeKey() string {
	return WorkflowTypeKey(w.Name)
}

// Descriptor returns the task descriptor for this workflow.
func (w Workflow) Descriptor() TaskDescriptor {
	return TaskDescriptor{WorkflowID: w.ID, WorkflowName: w.Name}
}

// UserWorkflow records whether a user has a workflow switched on.
type UserWorkflow struct {
	ID         int64     `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	WorkflowID int64     `json:"workflow_id" db:"workflow_id"`
	Active     bool      `json:"is_active" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"-"`
}

// WorkflowTypeKey lower-cases name and replaces spaces with underscores.
// "Notion to Google" becomes "notion_to_google".
func WorkflowTypeKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
