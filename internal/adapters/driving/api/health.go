package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// HealthHandler serves liveness and per-dependency probes.
type HealthHandler struct {
	pingers map[string]driven.Pinger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(pingers map[string]driven.Pinger) *HealthHandler {
	return &HealthHandler{pingers: pingers}
}

type healthResponse struct {
	Status     string   `json:"status"`
	Component  string   `json:"component,omitempty"`
	Error      string   `json:"error,omitempty"`
	Components []string `json:"components,omitempty"`
}

// Live reports that the process is serving.
// GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.pingers))
	for name := range h.pingers {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Components: names})
}

// Component pings one dependency.
// GET /health/{component}
func (h *HealthHandler) Component(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "component")
	p, ok := h.pingers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_COMPONENT", "no health check named "+name)
		return
	}
	if err := ping(r.Context(), p); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Component: name,
			Error:     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Component: name})
}
