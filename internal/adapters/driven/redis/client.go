// Package redis provides the shared Redis adapters: a distributed lock for
// token refresh and a list-backed job queue for on-demand runs.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "flowsync:"

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

var _ driven.Pinger = (*Client)(nil)

// NewClient parses url, connects and checks the connection.
func NewClient(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping reports whether Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
