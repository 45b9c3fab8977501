package store

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
)

// Retryer defines the interface for retry logic around store operations.
// The run sequencing never touches it directly; swapping the policy does
// not change any orchestration code.
type Retryer interface {
	// MaxAttempts returns the maximum number of attempts, including the first.
	MaxAttempts() int

	// RetryDelay returns the delay duration for the given attempt number and error.
	RetryDelay(attempt int, err error) (time.Duration, error)

	// IsErrorRetryable determines if the given error should be retried.
	IsErrorRetryable(error) bool
}

// NopRetryer performs no retries: every failure propagates on the first attempt.
// This is the default policy.
type NopRetryer struct{}

// MaxAttempts returns 1.
func (NopRetryer) MaxAttempts() int { return 1 }

// RetryDelay always returns zero.
func (NopRetryer) RetryDelay(int, error) (time.Duration, error) { return 0, nil }

// IsErrorRetryable always returns false.
func (NopRetryer) IsErrorRetryable(error) bool { return false }

// BackoffRetryer implements the Retryer interface with exponential backoff
// and jitter, retrying only errors that AWS reports as transient.
//
// Thread Safety: all fields are immutable configuration values set at
// creation time and never modified.
type BackoffRetryer struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewBackoffRetryer creates a BackoffRetryer with the given attempt budget
// and delay bounds.
func NewBackoffRetryer(maxAttempts int, baseDelay, maxDelay time.Duration) *BackoffRetryer {
	return &BackoffRetryer{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// MaxAttempts returns the maximum number of attempts.
func (r *BackoffRetryer) MaxAttempts() int {
	return r.maxAttempts
}

// RetryDelay returns the delay duration for the given attempt number,
// implementing exponential backoff with jitter to prevent thundering herd problems.
func (r *BackoffRetryer) RetryDelay(attempt int, err error) (time.Duration, error) {
	// Exponential backoff: baseDelay * 2^(attempt-1)
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * r.baseDelay

	// Add jitter (±25%)
	jitterRange := int64(float64(delay) * 0.25)
	if jitterRange > 0 {
		jitter := time.Duration(rand.Int63n(2*jitterRange) - jitterRange)
		delay += jitter
	}

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	if delay < 0 {
		delay = 0
	}

	return delay, nil
}

// IsErrorRetryable determines if the given error should be retried.
// It checks for specific AWS error codes that indicate transient failures.
func (r *BackoffRetryer) IsErrorRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException",
			"SlowDown",
			"RequestLimitExceeded",
			"TooManyRequestsException",
			"InternalError":
			return true
		case "AccessDenied",
			"NoSuchBucket",
			"NoSuchKey",
			"InvalidParameterException":
			return false
		}
	}

	// Conservative default: unknown errors are not retried.
	return false
}

// callWithRetry invokes fn under the client's retry policy. The first
// non-retryable error, or exhaustion of the attempt budget, is returned as-is.
func (c *Client) callWithRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt >= c.retryer.MaxAttempts() || !c.retryer.IsErrorRetryable(err) {
			return err
		}

		delay, derr := c.retryer.RetryDelay(attempt, err)
		if derr != nil {
			return err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
