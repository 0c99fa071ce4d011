// Package retry holds the wait helpers shared by the HTTP client and the agent loop.
package retry

import (
	"context"
	"time"
)

const (
	baseDelay = 100 * time.Millisecond
	maxDelay  = 2 * time.Second
)

// Backoff returns the wait before retry number attempt (1-based): 100ms doubling up to 2s.
func Backoff(attempt int) time.Duration {
	attempt = max(1, min(attempt, 6))
	return min(baseDelay<<uint(attempt-1), maxDelay)
}

// Sleep waits for d or until ctx ends, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
