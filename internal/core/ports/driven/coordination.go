package driven

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// Locker provides mutual exclusion by key across concurrent runs.
// Token refresh for a (user, provider) pair runs under one key.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	// The returned function releases the key.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// JobQueue carries on-demand run requests to workers.
type JobQueue interface {
	// Enqueue appends a job.
	Enqueue(ctx context.Context, job domain.Job) error

	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (domain.Job, error)
}

// Pinger reports whether an infrastructure dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
