package inproc

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// DefaultQueueSize is the buffer of a ChannelQueue created with size <= 0.
const DefaultQueueSize = 64

// Ensure ChannelQueue implements the interface.
var _ driven.JobQueue = (*ChannelQueue)(nil)

// ChannelQueue is a buffered channel of jobs. Jobs do not survive a restart.
type ChannelQueue struct {
	jobs chan domain.Job
}

// NewChannelQueue creates a queue holding up to size pending jobs.
func NewChannelQueue(size int) *ChannelQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &ChannelQueue{jobs: make(chan domain.Job, size)}
}

// Enqueue blocks while the buffer is full.
func (q *ChannelQueue) Enqueue(ctx context.Context, job domain.Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job arrives or ctx is done.
func (q *ChannelQueue) Dequeue(ctx context.Context) (domain.Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return domain.Job{}, ctx.Err()
	}
}

// Len returns the number of queued jobs.
func (q *ChannelQueue) Len() int {
	return len(q.jobs)
}
