package utils

import (
	"fmt"
	"time"
)

// maxBackoff bounds the doubling when no MaxDelay is configured.
const maxBackoff = time.Hour

// RetryConfig holds the parameters for the retry strategy.
//
// MaxAttempts counts every attempt including the first one. Zero means the
// policy never gives up: a failed fetch is re-issued until it succeeds.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *Logger
}

// Unbounded reports whether the policy retries forever.
func (r *RetryConfig) Unbounded() bool {
	return r.MaxAttempts <= 0
}

// Backoff returns the delay to wait after the given number of consecutive
// failures, and whether another attempt is allowed at all.
func (r *RetryConfig) Backoff(failures int) (time.Duration, bool) {
	if failures < 1 {
		failures = 1
	}
	if !r.Unbounded() && failures >= r.MaxAttempts {
		return 0, false
	}

	delay := r.BaseDelay
	for i := 1; i < failures && delay > 0; i++ {
		delay *= 2
		if (r.MaxDelay > 0 && delay >= r.MaxDelay) || delay >= maxBackoff {
			break
		}
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	return delay, true
}

// Do executes fn with exponential back-off retry logic. An unbounded policy
// runs fn exactly once.
func (r *RetryConfig) Do(operationName string, fn func() error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < attempts {
			delay, _ := r.Backoff(attempt)
			if r.Logger != nil {
				r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, attempts, lastErr, delay)
			}
			time.Sleep(delay)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}
