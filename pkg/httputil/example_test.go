package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/gitdeps/pkg/httputil"
)

func ExamplePolicy_Do() {
	policy := httputil.Policy{Retries: 2, Backoff: time.Millisecond}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return httputil.Retryable(errors.New("status 503"))
		}
		return nil
	})
	fmt.Println("attempts:", attempts, "error:", err)
	// Output:
	// attempts: 3 error: <nil>
}

func ExampleRetry_permanent() {
	attempts := 0
	err := httputil.Retry(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		return errors.New("status 404")
	})
	fmt.Println("attempts:", attempts, "error:", err)
	// Output:
	// attempts: 1 error: status 404
}
