package ai

import (
	"context"
	"log/slog"
	"math"
	"time"

	enginerr "github.com/lectern/lectern/internal/errors"
)

// RetryPolicy is a transport-independent bounded exponential backoff
// policy for backend calls.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// Multiplier scales the delay on each subsequent retry.
	Multiplier float64
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the standard backend retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		Multiplier: 1.5,
		MaxDelay:   15 * time.Second,
	}
}

// Delay returns the backoff delay after the given zero-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn, retrying on failure until the policy is exhausted. The
// returned error after exhaustion carries the RETRIES_EXHAUSTED code and
// wraps the last failure.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == p.MaxRetries {
			break
		}
		delay := p.Delay(attempt)
		slog.Debug("backend call failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", lastErr)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return enginerr.ContextCanceled(ctx.Err())
		}
	}
	return enginerr.RetriesExhausted("backend call failed after retries", lastErr)
}
