package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
)

// LogHandler serves execution history.
type LogHandler struct {
	service driving.ExecutionLogService
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(service driving.ExecutionLogService) *LogHandler {
	return &LogHandler{service: service}
}

type logsResponse struct {
	UserID string                `json:"user_id"`
	Logs   []domain.ExecutionLog `json:"logs"`
}

// Recent returns a user's latest rows.
// GET /users/{userID}/logs?limit=N
func (h *LogHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
		return
	}

	rows, err := h.service.Recent(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.ExecutionLog{}
	}
	writeJSON(w, http.StatusOK, logsResponse{UserID: userID, Logs: rows})
}

// Analytics returns aggregated history for a user.
// GET /users/{userID}/analytics
func (h *LogHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Analytics(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
