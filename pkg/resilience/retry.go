package resilience

import (
	"context"
	"errors"
	"time"
)

// Operation is a unit of work that may fail transiently.
type Operation func(ctx context.Context) (interface{}, error)

// RetryConfig controls retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// RetryableErrors, when set, restricts retries to errors matching one of
	// these (via errors.Is). Empty means every error is retryable.
	RetryableErrors []error

	// RetryableChecker, when set, overrides RetryableErrors entirely.
	RetryableChecker func(error) bool
}

// DefaultRetryConfig returns a config suitable for store round trips.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Retry executes the operation with exponential backoff until it succeeds,
// exhausts MaxAttempts, hits a non-retryable error, or the context ends.
func Retry(ctx context.Context, config RetryConfig, op Operation) (interface{}, error) {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(config, err) {
			return nil, err
		}

		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return nil, lastErr
}

func isRetryable(config RetryConfig, err error) bool {
	// Cancellation is never worth retrying
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if config.RetryableChecker != nil {
		return config.RetryableChecker(err)
	}

	if len(config.RetryableErrors) == 0 {
		return true
	}

	for _, retryable := range config.RetryableErrors {
		if errors.Is(err, retryable) {
			return true
		}
	}
	return false
}
