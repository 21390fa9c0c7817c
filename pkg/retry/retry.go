package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"chainreact/pkg/errors"
)

// Strategy represents different retry strategies
type Strategy string

const (
	StrategyFixed       Strategy = "fixed"
	StrategyLinear      Strategy = "linear"
	StrategyExponential Strategy = "exponential"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts   int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
	Strategy      Strategy      `json:"strategy" yaml:"strategy"`
	Multiplier    float64       `json:"multiplier" yaml:"multiplier"`
	Jitter        bool          `json:"jitter" yaml:"jitter"`
	JitterPercent float64       `json:"jitter_percent" yaml:"jitter_percent"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		Strategy:      StrategyExponential,
		Multiplier:    2.0,
		Jitter:        true,
		JitterPercent: 0.1,
		Timeout:       5 * time.Minute,
	}
}

// Preset configs for common scenarios
var (
	DatabaseConfig = &Config{
		MaxAttempts:   3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		Strategy:      StrategyExponential,
		Multiplier:    1.5,
		Jitter:        true,
		JitterPercent: 0.1,
		Timeout:       30 * time.Second,
	}

	// LLMConfig covers completion calls. Rate limited and transient
	// provider failures back off aggressively before giving up.
	LLMConfig = &Config{
		MaxAttempts:   4,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		Strategy:      StrategyExponential,
		Multiplier:    2.0,
		Jitter:        true,
		JitterPercent: 0.2,
		Timeout:       4 * time.Minute,
	}
)

// RetryFunc represents a function that can be retried
type RetryFunc func(ctx context.Context, attempt int) error

// RetryCondition determines whether an error should trigger a retry
type RetryCondition func(err error, attempt int) bool

// BackoffFunc calculates the delay for the next attempt
type BackoffFunc func(attempt int, config *Config) time.Duration

// Retryer handles retry logic
type Retryer struct {
	config    *Config
	condition RetryCondition
	backoff   BackoffFunc
	onRetry   func(attempt int, err error, delay time.Duration)
}

// New creates a new Retryer with default configuration
func New() *Retryer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new Retryer with custom configuration
func NewWithConfig(config *Config) *Retryer {
	return &Retryer{
		config:    config,
		condition: DefaultRetryCondition,
		backoff:   getBackoffFunc(config.Strategy),
	}
}

// WithCondition sets a custom retry condition
func (r *Retryer) WithCondition(condition RetryCondition) *Retryer {
	r.condition = condition
	return r
}

// WithOnRetry sets a callback function called on each retry attempt
func (r *Retryer) WithOnRetry(onRetry func(attempt int, err error, delay time.Duration)) *Retryer {
	r.onRetry = onRetry
	return r
}

// Execute runs the provided function with retry logic
func (r *Retryer) Execute(ctx context.Context, fn RetryFunc) error {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt >= r.config.MaxAttempts || !r.condition(err, attempt) {
			break
		}

		delay := r.backoff(attempt, r.config)

		if r.onRetry != nil {
			r.onRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			continue
		}
	}

	// Wrap the final error with retry information
	if appErr := errors.GetAppError(lastErr); appErr != nil {
		return appErr.WithContext("retry_attempts", r.config.MaxAttempts)
	}

	return errors.Wrap(lastErr, errors.ErrorTypeInternal, errors.CodeInternal,
		fmt.Sprintf("operation failed after %d attempts", r.config.MaxAttempts)).
		WithContext("retry_attempts", r.config.MaxAttempts)
}

// ExecuteWithResult runs a function that returns a value and error
func ExecuteWithResult[T any](ctx context.Context, config *Config, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var result T
	var resultSet bool

	retryFn := func(ctx context.Context, attempt int) error {
		r, err := fn(ctx, attempt)
		if err == nil {
			result = r
			resultSet = true
		}
		return err
	}

	retryer := NewWithConfig(config)
	err := retryer.Execute(ctx, retryFn)

	if !resultSet {
		var zero T
		return zero, err
	}

	return result, err
}

// DefaultRetryCondition checks if an error should trigger a retry
func DefaultRetryCondition(err error, attempt int) bool {
	if err == nil {
		return false
	}

	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr.IsRetryable()
	}

	return isRetryableError(err)
}

// IsRateLimitError reports whether the error looks like a provider
// rate limit response (HTTP 429 or an explicit rate limit message).
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if appErr := errors.GetAppError(err); appErr != nil && appErr.Code == errors.CodeRateLimit {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// isRetryableError determines if a standard error is retryable
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// AnyCondition combines multiple retry conditions with OR logic
func AnyCondition(conditions ...RetryCondition) RetryCondition {
	return func(err error, attempt int) bool {
		for _, condition := range conditions {
			if condition(err, attempt) {
				return true
			}
		}
		return false
	}
}

// Backoff strategies

func getBackoffFunc(strategy Strategy) BackoffFunc {
	switch strategy {
	case StrategyFixed:
		return FixedBackoff
	case StrategyLinear:
		return LinearBackoff
	case StrategyExponential:
		return ExponentialBackoff
	default:
		return ExponentialBackoff
	}
}

// FixedBackoff provides a fixed delay between retries
func FixedBackoff(attempt int, config *Config) time.Duration {
	delay := config.InitialDelay
	if config.Jitter {
		delay = addJitter(delay, config.JitterPercent)
	}
	return delay
}

// LinearBackoff provides a linearly increasing delay
func LinearBackoff(attempt int, config *Config) time.Duration {
	delay := config.InitialDelay * time.Duration(attempt)
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	if config.Jitter {
		delay = addJitter(delay, config.JitterPercent)
	}
	return delay
}

// ExponentialBackoff provides exponentially increasing delays
func ExponentialBackoff(attempt int, config *Config) time.Duration {
	multiplier := config.Multiplier
	if multiplier <= 1.0 {
		multiplier = 2.0
	}

	delay := time.Duration(float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	if config.Jitter {
		delay = addJitter(delay, config.JitterPercent)
	}
	return delay
}

// addJitter adds randomness to prevent thundering herd
func addJitter(delay time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 {
		return delay
	}

	jitter := float64(delay) * jitterPercent
	adjustment := (rand.Float64() - 0.5) * 2 * jitter

	result := time.Duration(float64(delay) + adjustment)
	if result < 0 {
		result = delay / 2
	}

	return result
}

// RetryDatabase retries database operations
func RetryDatabase(ctx context.Context, fn RetryFunc) error {
	return NewWithConfig(DatabaseConfig).Execute(ctx, fn)
}

// RetryLLM retries LLM completion calls, including plain rate limit
// errors that carry no retryable marker.
func RetryLLM(ctx context.Context, fn RetryFunc) error {
	return NewWithConfig(LLMConfig).
		WithCondition(AnyCondition(DefaultRetryCondition, func(err error, attempt int) bool {
			return IsRateLimitError(err)
		})).
		Execute(ctx, fn)
}
