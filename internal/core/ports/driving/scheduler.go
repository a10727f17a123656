package driving

import "context"

// Scheduler drives the periodic workflow poll and the token refresh sweep.
type Scheduler interface {
	// Start ticks until ctx ends. A canceled context is a clean stop.
	Start(ctx context.Context) error

	// Stop waits for an in-flight tick to finish.
	Stop() error
}
