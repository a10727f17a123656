package driven

import "time"

// Item outcomes reported to Metrics.RecordItem.
const (
	ItemCreated = "created"
	ItemSkipped = "skipped"
	ItemFailed  = "failed"
)

// Metrics receives engine counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// RecordRun counts a finished run and its duration.
	RecordRun(workflow string, success bool, elapsed time.Duration)

	// RecordItem counts one record outcome.
	RecordItem(workflow, outcome string)

	// RecordRefresh counts a token refresh attempt.
	RecordRefresh(provider string, success bool)

	// RecordAttempt counts one HTTP attempt against a provider.
	// outcome is "ok", "auth", "retry" or "exhausted".
	RecordAttempt(provider, outcome string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordRun(string, bool, time.Duration) {}
func (NopMetrics) RecordItem(string, string)             {}
func (NopMetrics) RecordRefresh(string, bool)            {}
func (NopMetrics) RecordAttempt(string, string)          {}

var _ Metrics = NopMetrics{}
