package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// DefaultQueueName is the list on-demand jobs are pushed to.
const DefaultQueueName = "jobs"

// popTimeout bounds each BRPOP so a cancelled ctx is noticed promptly.
const popTimeout = time.Second

// JobQueue implements driven.JobQueue with LPUSH and BRPOP on one list.
// Jobs are delivered at most once: a worker that dies mid-run loses its job.
type JobQueue struct {
	rdb *redis.Client
	key string
}

var _ driven.JobQueue = (*JobQueue)(nil)

// NewJobQueue returns the queue stored under name.
func (c *Client) NewJobQueue(name string) *JobQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &JobQueue{rdb: c.rdb, key: KeyPrefix + "queue:" + name}
}

// Enqueue appends a job.
func (q *JobQueue) Enqueue(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

// Dequeue blocks until a job is available or ctx is done.
func (q *JobQueue) Dequeue(ctx context.Context) (domain.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Job{}, err
		}

		res, err := q.rdb.BRPop(ctx, popTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Job{}, ctxErr
			}
			return domain.Job{}, fmt.Errorf("brpop %s: %w", q.key, err)
		}

		// res is [key, value].
		var job domain.Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.Job{}, fmt.Errorf("decoding job: %w", domain.ErrInvalidInput)
		}
		return job, nil
	}
}

// Len returns the number of queued jobs.
func (q *JobQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
