package services

import (
	"sort"
	"sync"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
)

// Ensure TaskRegistry implements the interface.
var _ driving.TaskRegistry = (*TaskRegistry)(nil)

// TaskInfo describes a registered workflow type.
type TaskInfo struct {
	TypeKey           string            `json:"type"`
	RequiredProviders []domain.Provider `json:"required_providers"`
}

// TaskRegistry maps workflow-type keys to task constructors.
// New workflows are added with Register without touching the runner.
type TaskRegistry struct {
	mu    sync.RWMutex
	ctors map[string]driving.TaskConstructor
}

// NewTaskRegistry creates an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{ctors: make(map[string]driving.TaskConstructor)}
}

// Register binds typeKey to ctor.
func (r *TaskRegistry) Register(typeKey string, ctor driving.TaskConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[typeKey] = ctor
}

// Create builds a task bound to the workflow. Unknown keys return false.
func (r *TaskRegistry) Create(typeKey string, workflowID int64, workflowName string) (driving.Task, bool) {
	r.mu.RLock()
	ctor, ok := r.ctors[typeKey]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(domain.TaskDescriptor{WorkflowID: workflowID, WorkflowName: workflowName}), true
}

// Types returns the registered keys, sorted.
func (r *TaskRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe lists each registered type with the integrations it needs.
func (r *TaskRegistry) Describe() []TaskInfo {
	types := r.Types()
	infos := make([]TaskInfo, 0, len(types))
	for _, key := range types {
		task, ok := r.Create(key, 0, key)
		if !ok {
			continue
		}
		infos = append(infos, TaskInfo{TypeKey: key, RequiredProviders: task.RequiredProviders()})
	}
	return infos
}

// RegisterBuiltinTasks registers the workflows shipped with flowsync.
func RegisterBuiltinTasks(r driving.TaskRegistry, deps SyncTaskDeps) {
	r.Register(domain.WorkflowNotionToGoogle, NotionToGoogle(deps))
}
