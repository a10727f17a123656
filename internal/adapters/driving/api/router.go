// Package api exposes health checks, on-demand triggers, execution logs
// and Prometheus metrics over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/flowsync/internal/adapters/driven/metrics"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
)

// WorkflowLister reports the workflow types the worker can run.
type WorkflowLister interface {
	Types() []string
}

// RouterDeps holds everything NewRouter wires into handlers.
type RouterDeps struct {
	Runner     driving.WorkflowRunner
	Dispatcher driving.JobDispatcher
	Logs       driving.ExecutionLogService
	Workflows  WorkflowLister

	// Pingers maps a component name (database, redis) to its health probe.
	Pingers map[string]driven.Pinger

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// RunTimeout bounds synchronous runs. Zero means no limit.
	RunTimeout time.Duration
}

// NewRouter builds the chi router for the worker's HTTP surface.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	health := NewHealthHandler(deps.Pingers)
	runs := NewRunHandler(deps.Runner, deps.Dispatcher, deps.Workflows, deps.RunTimeout)
	logs := NewLogHandler(deps.Logs)

	r.Get("/health", health.Live)
	r.Get("/health/{component}", health.Component)

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", runs.List)
		r.Post("/{type}/run", runs.Run)
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/logs", logs.Recent)
		r.Get("/analytics", logs.Analytics)
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	return r
}

// pingTimeout bounds each dependency probe.
const pingTimeout = 3 * time.Second

func ping(ctx context.Context, p driven.Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}
