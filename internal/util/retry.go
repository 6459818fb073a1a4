package util

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewExponentialBackoff returns a doubling backoff starting at initial and
// capped at max, with light jitter. It never gives up on elapsed time alone;
// callers bound it with a retry count or context.
func NewExponentialBackoff(initial, max time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.1
	b.Reset()
	return b
}

// Retry calls fn up to maxAttempts times with exponential backoff starting at
// baseDelay. It returns nil on the first successful call, or the last error
// if all attempts fail. Errors wrapped with backoff.Permanent stop retrying
// immediately. The function respects context cancellation between retries.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	b := NewExponentialBackoff(baseDelay, 30*time.Second)
	b.RandomizationFactor = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxAttempts-1)), ctx)
	return backoff.Retry(fn, policy)
}
