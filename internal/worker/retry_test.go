package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func stubRetrySleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	orig := retrySleepFunc
	retrySleepFunc = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { retrySleepFunc = orig })
	return &waits
}

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestRetry_SucceedsAfterTransient(t *testing.T) {
	waits := stubRetrySleep(t)

	calls := 0
	attempts, err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseBackoff: 100 * time.Millisecond}, isTransient,
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *waits)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	stubRetrySleep(t)

	attempts, err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3}, isTransient,
		func(context.Context) error { return errTransient })

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	waits := stubRetrySleep(t)
	permanent := errors.New("permanent")

	attempts, err := Retry(context.Background(), RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Second}, isTransient,
		func(context.Context) error { return permanent })

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *waits)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := Retry(ctx, RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Hour}, isTransient,
		func(context.Context) error { return errTransient })

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), RetryPolicy{}, isTransient,
		func(context.Context) error { calls++; return nil })

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{1, 0, 10 * time.Millisecond},
		{2, 0, 20 * time.Millisecond},
		{4, 0, 80 * time.Millisecond},
		{4, 50 * time.Millisecond, 50 * time.Millisecond},
		{0, 0, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := Backoff(10*time.Millisecond, tt.attempt, tt.max); got != tt.want {
			t.Errorf("Backoff(attempt=%d, max=%v) = %v, want %v", tt.attempt, tt.max, got, tt.want)
		}
	}
}
