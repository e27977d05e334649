// Package retry re-runs a whole operation a bounded number of times with a
// fixed delay between attempts.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jimengproxy/jimeng-proxy/internal/clock"
)

// Default policy values.
const (
	DefaultMaxRetries = 3
	DefaultDelay      = 5 * time.Second
)

// Policy describes how failed attempts are repeated.
//
// An operation is invoked at most MaxRetries+1 times. The attempt counter
// starts at zero, increases by one per failure and is never reset.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	Clock      clock.Clock

	// Retryable reports whether an error may be retried. Nil retries every error.
	Retryable func(error) bool

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(ctx context.Context, attempt int, err error)
}

// DefaultPolicy returns the policy used by the completion adapters.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultDelay,
		Clock:      clock.Real{},
	}
}

// Do calls fn until it succeeds, the error is not retryable, or the retry
// budget is spent. The final error is returned unmodified.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}

		if attempt >= p.MaxRetries || !p.retryable(err) || ctx.Err() != nil {
			return result, err
		}

		slog.ErrorContext(ctx, "attempt failed", "attempt", attempt, "error", err)
		slog.WarnContext(ctx, "retrying", "delay", p.Delay, "next_attempt", attempt+1)
		if p.OnRetry != nil {
			p.OnRetry(ctx, attempt, err)
		}

		if sleepErr := clk.Sleep(ctx, p.Delay); sleepErr != nil {
			// Cancelled while waiting: the operation error is more useful than ctx.Err().
			return result, err
		}
	}
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}
