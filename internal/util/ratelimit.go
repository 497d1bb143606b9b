package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token-bucket limiter that replenishes one token every
// 1/rate seconds, holding at most one token. It smooths request bursts
// against venue API limits.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // time to mint one token
	nextAt   time.Time     // earliest time the next token is available
}

// NewRateLimiter creates a RateLimiter that allows perMinute operations per
// minute. A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	var interval time.Duration
	if perMinute > 0 {
		interval = time.Minute / time.Duration(perMinute)
	}
	return &RateLimiter{interval: interval}
}

// Wait blocks until a token is available or the context is cancelled. The
// wait duration is computed up front rather than polled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.interval <= 0 {
		return ctx.Err()
	}

	rl.mu.Lock()
	now := time.Now()
	wait := rl.nextAt.Sub(now)
	if wait < 0 {
		wait = 0
		rl.nextAt = now
	}
	rl.nextAt = rl.nextAt.Add(rl.interval)
	rl.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
