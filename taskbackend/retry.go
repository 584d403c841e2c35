package taskbackend

import (
	"context"
	"errors"
	"net"
	"time"
)

// RetryPolicy reproduces the task-layer retry decorator, which
// taskbackend/celery wraps around its publish step (the other backend
// adapters do not use it): default 3 retries, 60s countdown, triggered
// only for connection-classed failures (spec.md §7) — a protocol error or
// a graceful ExecutionResult failure is never retried, only a transport
// problem talking to the broker itself.
type RetryPolicy struct {
	MaxRetries int
	Countdown  time.Duration
}

// DefaultRetryPolicy matches the countdown named in spec.md §7.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Countdown: 60 * time.Second}
}

// IsConnectionError reports whether err looks like the transport-level
// failure the retry decorator targets (a network error, or the broker
// context deadline), as opposed to a task-level or serialization failure
// that retrying can never fix.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn, retrying up to p.MaxRetries times with a fixed p.Countdown
// delay between attempts when fn's error is connection-classed. The first
// non-connection error, or success, returns immediately. ctx cancellation
// aborts the wait between attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !IsConnectionError(err) || attempt >= p.MaxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Countdown):
		}
	}
}
