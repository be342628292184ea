package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// TokenBuckets keeps one token bucket per key. It smooths bursts, which
// suits unauthenticated endpoints keyed by client IP such as login.
type TokenBuckets struct {
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	every      rate.Limit
	burst      int
	maxEntries int
}

// NewPerMinute allows perMinute requests per key per minute with a burst of
// the same size.
func NewPerMinute(perMinute int) *TokenBuckets {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &TokenBuckets{
		limiters:   make(map[string]*rate.Limiter),
		every:      rate.Limit(float64(perMinute) / 60),
		burst:      perMinute,
		maxEntries: 10_000,
	}
}

func (t *TokenBuckets) Allow(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	limiter, ok := t.limiters[key]
	if !ok {
		// Dropping every bucket only resets keys to a full burst.
		if len(t.limiters) >= t.maxEntries {
			t.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(t.every, t.burst)
		t.limiters[key] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow(), nil
}
