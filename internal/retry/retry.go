// Package retry provides bounded retry with exponential backoff and
// jitter for calls that cross the external boundary (embedder, generator,
// vector store).
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Config controls retry behaviour.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffBase is the delay before the first retry.
	BackoffBase time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
}

// DefaultConfig retries twice with a 500ms base, matching the upstream
// failure policy: small bounded count, exponential backoff.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  2,
		BackoffBase: 500 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

// Permanent wraps an error that must not be retried (e.g. a 4xx response
// or a validation failure).
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }

func (p *Permanent) Unwrap() error { return p.Err }

// IsPermanent reports whether err is marked non-retryable.
func IsPermanent(err error) bool {
	var p *Permanent
	return errors.As(err, &p)
}

// Do runs fn, retrying transient failures up to cfg.MaxRetries times.
// It returns the last error once attempts are exhausted, immediately on
// a Permanent error, and ctx.Err() when the context ends first.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(cfg, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

// backoff computes the delay before the given attempt (1-based) with
// +/-25% jitter to avoid thundering retries.
func backoff(cfg Config, attempt int) time.Duration {
	d := cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if cfg.MaxBackoff > 0 && d > cfg.MaxBackoff {
		d = cfg.MaxBackoff
	}
	jitter := float64(d) * 0.25 * (rand.Float64()*2 - 1)
	return d + time.Duration(jitter)
}
