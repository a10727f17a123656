package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// Lock defaults.
const (
	DefaultLockTTL   = 30 * time.Second
	DefaultLockRetry = 100 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements driven.Locker with SET NX PX.
// Workers sharing a Redis refresh a user's token one at a time.
type Locker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
}

var _ driven.Locker = (*Locker)(nil)

// NewLocker creates a locker. The TTL bounds how long a crashed holder
// blocks others.
func (c *Client) NewLocker(ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{rdb: c.rdb, ttl: ttl, retry: DefaultLockRetry}
}

func lockKey(key string) string {
	return KeyPrefix + "lock:" + key
}

// Lock polls until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKey(key)
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("setnx %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(ctx, redisKey, token) })
	}, nil
}

func (l *Locker) release(ctx context.Context, redisKey, token string) {
	// Release even when the caller's ctx has been cancelled.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		logger.Warn("failed to release redis lock", "key", redisKey, "error", err)
	}
}
