// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// Ensure Collector implements the interface.
var _ driven.Metrics = (*Collector)(nil)

// Collector records run, item, refresh and HTTP attempt counters.
type Collector struct {
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	items        *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	httpAttempts *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowsync_runs_total",
			Help: "Workflow runs by workflow and result.",
		}, []string{"workflow", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowsync_run_duration_seconds",
			Help:    "Duration of one workflow run for one user.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"workflow"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowsync_items_total",
			Help: "Source records by outcome: created, skipped or failed.",
		}, []string{"workflow", "outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowsync_token_refresh_total",
			Help: "OAuth token refresh attempts by provider and result.",
		}, []string{"provider", "result"}),
		httpAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowsync_http_attempts_total",
			Help: "Provider HTTP attempts by outcome: ok, auth, retry or exhausted.",
		}, []string{"provider", "outcome"}),
	}

	reg.MustRegister(c.runs, c.runDuration, c.items, c.refreshes, c.httpAttempts)
	return c
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors alongside a fresh Collector.
func NewRegistry() (*prometheus.Registry, *Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, NewCollector(reg)
}

// RecordRun counts a finished run and observes its duration.
func (c *Collector) RecordRun(workflow string, success bool, elapsed time.Duration) {
	c.runs.WithLabelValues(workflow, result(success)).Inc()
	c.runDuration.WithLabelValues(workflow).Observe(elapsed.Seconds())
}

// RecordItem counts one record outcome.
func (c *Collector) RecordItem(workflow, outcome string) {
	c.items.WithLabelValues(workflow, outcome).Inc()
}

// RecordRefresh counts a token refresh attempt.
func (c *Collector) RecordRefresh(provider string, success bool) {
	c.refreshes.WithLabelValues(provider, result(success)).Inc()
}

// RecordAttempt counts one HTTP attempt against a provider.
func (c *Collector) RecordAttempt(provider, outcome string) {
	c.httpAttempts.WithLabelValues(provider, outcome).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
