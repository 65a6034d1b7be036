package httputil

import (
	"context"
	"errors"
	"time"
)

// DefaultBackoff is the delay before the first retry. It doubles after each
// failed attempt.
const DefaultBackoff = time.Second

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses, rate limits) with
// this type so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. Retryable(nil) returns nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. The delay doubles after each failed attempt.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// Policy decides how many times a request is retried.
// The zero value performs exactly one attempt.
type Policy struct {
	Retries int           // Additional attempts after the first
	Backoff time.Duration // Initial delay, DefaultBackoff when zero
}

// Do runs fn under the policy.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	delay := p.Backoff
	if delay <= 0 {
		delay = DefaultBackoff
	}
	return Retry(ctx, p.Retries+1, delay, fn)
}

// IsRetryable reports whether err (or anything it wraps) is a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
