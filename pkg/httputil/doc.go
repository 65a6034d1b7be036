// Package httputil provides HTTP helpers shared by the hosting API clients.
//
// # Retry
//
// [Retry] wraps an operation with automatic retry for transient failures
// that the caller marks with [Retryable]:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Retries use exponential backoff:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return fetch()
//	})
//
// gitdeps is fail-fast by default, so the zero [Policy] performs a single
// attempt. The `retries` configuration key raises the number of attempts for
// hosted API requests only.
package httputil
