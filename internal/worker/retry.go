package worker

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds a retried operation
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseBackoff time.Duration // doubled after every failed attempt
	MaxBackoff  time.Duration // 0 = uncapped
	Logger      *slog.Logger  // nil = silent
}

// retrySleepFunc waits between attempts. Tests replace it to avoid real sleeps.
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry runs fn until it succeeds, returns an error retryable rejects,
// runs out of attempts, or ctx is done. It returns the number of attempts
// made and the last error.
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func(context.Context) error) (int, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil || retryable == nil || !retryable(err) || attempt == maxAttempts {
			return attempt, lastErr
		}

		wait := Backoff(policy.BaseBackoff, attempt, policy.MaxBackoff)
		if policy.Logger != nil {
			policy.Logger.WarnContext(ctx, "worker: retrying",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"backoff_ms", wait.Milliseconds(),
				"error", err)
		}
		if err := retrySleepFunc(ctx, wait); err != nil {
			return attempt, lastErr
		}
	}
	return maxAttempts, lastErr
}

// Backoff returns base * 2^(attempt-1), capped at max when max > 0
func Backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	wait := base * time.Duration(1<<uint(shift))
	if max > 0 && wait > max {
		wait = max
	}
	return wait
}
