package scrape

import (
	"context"
	"math/rand"
	"time"
)

// withRetry runs fn up to attempts times, sleeping a randomized duration
// between backoffMin and backoffMax after each failure. The last error is
// returned when every attempt fails. Context cancellation aborts the wait.
func withRetry(ctx context.Context, attempts int, backoffMin, backoffMax time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(jitter(backoffMin, backoffMax)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
