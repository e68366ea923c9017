// Package retry provides a bounded retry combinator for eventually
// consistent reads.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotReady signals that the value is not yet available and the attempt
// should be retried. Any other error aborts immediately.
var ErrNotReady = errors.New("not yet available")

// BackoffFunc returns the delay before the given attempt (0-based).
type BackoffFunc func(attempt int) time.Duration

// Linear returns a backoff that grows by base per attempt.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt+1) * base
	}
}

// Do runs fn up to attempts times, sleeping per backoff between tries while
// fn keeps returning ErrNotReady. When the attempts are exhausted the last
// ErrNotReady is returned wrapped, so callers can fall back to a direct read.
func Do[T any](ctx context.Context, attempts int, backoff BackoffFunc, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotReady) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, ErrNotReady)
}
