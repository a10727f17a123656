// Package rest is the HTTP discipline shared by provider connectors:
// bearer auth, bounded retry with exponential backoff, and failure
// classification into auth and transient errors.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/logger"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the total number of attempts for a call.
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is multiplied by 2^attempt between attempts.
	DefaultBackoffBase = time.Second

	maxSnippet      = 512
	maxResponseBody = 10 << 20
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	kind       error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap exposes domain.ErrAuth for 401 and domain.ErrTransient otherwise.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// Options configures a Client. A negative BackoffBase disables backoff.
type Options struct {
	// Provider labels metrics and log records.
	Provider string
	// Token is sent as "Authorization: Bearer <Token>".
	Token string
	// Headers are added to every request.
	Headers map[string]string

	HTTPClient  *http.Client
	MaxAttempts int
	BackoffBase time.Duration
	Limiter     *RateLimiter
	Metrics     driven.Metrics
}

// Client issues JSON requests for one credential. It keeps no state
// between calls apart from the rate limiter.
type Client struct {
	provider    string
	headers     http.Header
	http        *http.Client
	maxAttempts int
	backoffBase time.Duration
	limiter     *RateLimiter
	metrics     driven.Metrics
}

// New creates a client. Zero-valued options take the package defaults.
func New(opts Options) *Client {
	c := &Client{
		provider:    opts.Provider,
		headers:     make(http.Header),
		http:        opts.HTTPClient,
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		limiter:     opts.Limiter,
		metrics:     opts.Metrics,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	switch {
	case c.backoffBase == 0:
		c.backoffBase = DefaultBackoffBase
	case c.backoffBase < 0:
		// negative disables backoff
		c.backoffBase = 0
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter(opts.Provider)
	}
	if c.metrics == nil {
		c.metrics = driven.NopMetrics{}
	}

	c.headers.Set("Authorization", "Bearer "+opts.Token)
	c.headers.Set("Content-Type", "application/json")
	for k, v := range opts.Headers {
		c.headers.Set(k, v)
	}
	return c
}

// Do sends method to url with body encoded as JSON (nil for none) and
// decodes a 2xx response into out (nil to discard).
//
// A 401 fails immediately with an error wrapping domain.ErrAuth. Network
// errors and other non-2xx statuses are retried; when attempts run out the
// error wraps domain.ErrTransient.
func (c *Client) Do(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, url, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		respBody, err := c.send(ctx, method, url, payload)
		if err == nil {
			c.metrics.RecordAttempt(c.provider, "ok")
			return decode(respBody, out, method, url)
		}

		if errors.Is(err, domain.ErrAuth) {
			c.metrics.RecordAttempt(c.provider, "auth")
			logger.Warn("provider rejected token", "provider", c.provider, "method", method, "url", url)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		c.metrics.RecordAttempt(c.provider, "retry")
		logger.Warn("request failed",
			"provider", c.provider,
			"method", method,
			"url", url,
			"attempt", attempt+1,
			"error", err)
	}

	c.metrics.RecordAttempt(c.provider, "exhausted")
	var se *StatusError
	if errors.As(lastErr, &se) {
		return lastErr
	}
	return fmt.Errorf("%s %s after %d attempts: %w: %w", method, url, c.maxAttempts, domain.ErrTransient, lastErr)
}

// send performs a single attempt and returns the body of a 2xx response.
func (c *Client) send(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.headers.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	se := &StatusError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       snippet(data),
		kind:       domain.ErrTransient,
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		se.kind = domain.ErrAuth
	case http.StatusTooManyRequests:
		c.limiter.RecordRateLimit(retryAfter(resp.Header.Get("Retry-After")))
	}
	return nil, se
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.backoffBase * time.Duration(1<<attempt)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decode(data []byte, out any, method, url string) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w: %w", method, url, domain.ErrTransient, err)
	}
	return nil
}

func snippet(data []byte) string {
	s := string(bytes.TrimSpace(data))
	if len(s) > maxSnippet {
		return s[:maxSnippet] + "..."
	}
	return s
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
