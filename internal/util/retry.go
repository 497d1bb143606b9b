package util

import (
	"context"
	"fmt"
	"time"
)

// maxRetryDelay caps the exponential backoff so long retry chains do not
// stall a fetch for minutes.
const maxRetryDelay = 30 * time.Second

// Retry calls fn up to maxAttempts times with exponential backoff starting
// at baseDelay and capped at 30s. It returns nil on the first successful
// call; otherwise the last error wrapped with the attempt count. Context
// cancellation is honoured between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Don't sleep after the last failed attempt.
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}
