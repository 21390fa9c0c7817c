package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chainreact/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Strategy:     StrategyFixed,
		Timeout:      time.Second,
	}
}

func TestExecute(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		err := NewWithConfig(fastConfig(3)).Execute(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries retryable errors until success", func(t *testing.T) {
		calls := 0
		err := NewWithConfig(fastConfig(5)).Execute(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			if calls < 3 {
				return errors.TimeoutError("completion timed out")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry non-retryable errors", func(t *testing.T) {
		calls := 0
		err := NewWithConfig(fastConfig(5)).Execute(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			return errors.NewValidationError("bad input")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops after max attempts", func(t *testing.T) {
		calls := 0
		err := NewWithConfig(fastConfig(3)).Execute(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			return errors.TimeoutError("still timing out")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)

		appErr := errors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, 3, appErr.Context["retry_attempts"])
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewWithConfig(fastConfig(3)).Execute(ctx, func(ctx context.Context, attempt int) error {
			return errors.TimeoutError("never called twice")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invokes onRetry callback", func(t *testing.T) {
		var attempts []int
		_ = NewWithConfig(fastConfig(3)).
			WithOnRetry(func(attempt int, err error, delay time.Duration) {
				attempts = append(attempts, attempt)
			}).
			Execute(context.Background(), func(ctx context.Context, attempt int) error {
				return errors.TimeoutError("always fails")
			})
		assert.Equal(t, []int{1, 2}, attempts)
	})
}

func TestExecuteWithResult(t *testing.T) {
	calls := 0
	result, err := ExecuteWithResult(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.TimeoutError("transient")
		}
		return "workflow", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "workflow", result)
	assert.Equal(t, 2, calls)
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(fmt.Errorf("status code 429")))
	assert.True(t, IsRateLimitError(fmt.Errorf("Rate limit exceeded")))
	assert.True(t, IsRateLimitError(errors.New(errors.ErrorTypeRateLimit, errors.CodeRateLimit, "slow down")))
	assert.False(t, IsRateLimitError(fmt.Errorf("connection refused")))
}

func TestRetryLLM(t *testing.T) {
	// Plain 429 errors carry no retryable marker but must still retry
	calls := 0
	err := NewWithConfig(fastConfig(4)).
		WithCondition(AnyCondition(DefaultRetryCondition, func(err error, attempt int) bool {
			return IsRateLimitError(err)
		})).
		Execute(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			if calls < 3 {
				return fmt.Errorf("request failed: 429 too many requests")
			}
			return nil
		})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffStrategies(t *testing.T) {
	cfg := &Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	t.Run("fixed", func(t *testing.T) {
		assert.Equal(t, 100*time.Millisecond, FixedBackoff(1, cfg))
		assert.Equal(t, 100*time.Millisecond, FixedBackoff(5, cfg))
	})

	t.Run("linear", func(t *testing.T) {
		assert.Equal(t, 100*time.Millisecond, LinearBackoff(1, cfg))
		assert.Equal(t, 300*time.Millisecond, LinearBackoff(3, cfg))
		assert.Equal(t, time.Second, LinearBackoff(50, cfg))
	})

	t.Run("exponential", func(t *testing.T) {
		assert.Equal(t, 100*time.Millisecond, ExponentialBackoff(1, cfg))
		assert.Equal(t, 200*time.Millisecond, ExponentialBackoff(2, cfg))
		assert.Equal(t, 400*time.Millisecond, ExponentialBackoff(3, cfg))
		assert.Equal(t, time.Second, ExponentialBackoff(10, cfg))
	})
}
