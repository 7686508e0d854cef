package drive

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token-bucket limiter applied to every outbound query.
// It allows up to burst requests immediately, then refills at perSec
// tokens/second. Safe for concurrent use.
type rateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	perSec   float64
	lastFill time.Time
}

func newRateLimiter(perSec float64, burst int) *rateLimiter {
	return &rateLimiter{
		tokens:   float64(burst),
		max:      float64(burst),
		perSec:   perSec,
		lastFill: time.Now(),
	}
}

// wait blocks until a token is available or ctx is done.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens = min(rl.max, rl.tokens+now.Sub(rl.lastFill).Seconds()*rl.perSec)
		rl.lastFill = now

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		next := time.Duration((1.0 - rl.tokens) / rl.perSec * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}
	}
}
