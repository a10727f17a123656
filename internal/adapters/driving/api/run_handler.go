package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
)

// RunHandler triggers workflow runs on demand.
type RunHandler struct {
	runner     driving.WorkflowRunner
	dispatcher driving.JobDispatcher
	workflows  WorkflowLister
	timeout    time.Duration
}

// NewRunHandler creates a RunHandler. dispatcher may be nil, in which
// case asynchronous requests are rejected.
func NewRunHandler(
	runner driving.WorkflowRunner,
	dispatcher driving.JobDispatcher,
	workflows WorkflowLister,
	timeout time.Duration,
) *RunHandler {
	return &RunHandler{runner: runner, dispatcher: dispatcher, workflows: workflows, timeout: timeout}
}

type workflowsResponse struct {
	Types []string `json:"types"`
}

type queuedResponse struct {
	Status       string `json:"status"`
	WorkflowType string `json:"workflow_type"`
	UserID       string `json:"user_id"`
}

// List returns the registered workflow types.
// GET /workflows
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	types := []string{}
	if h.workflows != nil {
		types = append(types, h.workflows.Types()...)
	}
	writeJSON(w, http.StatusOK, workflowsResponse{Types: types})
}

// Run executes a workflow for one user, or queues it when async=true.
// POST /workflows/{type}/run?user_id=...&async=true
func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	workflowType := chi.URLParam(r, "type")
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER", "user_id is required")
		return
	}

	if queryBool(r, "async") {
		if h.dispatcher == nil {
			writeError(w, http.StatusServiceUnavailable, "NO_QUEUE", "asynchronous runs are not enabled")
			return
		}
		if err := h.dispatcher.Submit(r.Context(), workflowType, userID); err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, queuedResponse{
			Status:       "queued",
			WorkflowType: workflowType,
			UserID:       userID,
		})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.runner.RunOne(ctx, workflowType, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
