// Package ratelimit implements per-identifier fixed-window admission control.
//
// Each limiter instance carries its own limit and window, so callers keep one
// instance per action class (reads, sends, profile updates).
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits or rejects a request for key and records it.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	count int
	start time.Time
}

// Memory is a process-local limiter guarded by a mutex.
type Memory struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxEntries int
	entries    map[string]*bucket
	now        func() time.Time
}

type Option func(*Memory)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithMaxEntries bounds the number of tracked identifiers. When the bound is
// reached, expired windows are swept first and then the oldest window is dropped.
func WithMaxEntries(n int) Option {
	return func(m *Memory) { m.maxEntries = n }
}

func NewMemory(limit int, window time.Duration, opts ...Option) *Memory {
	m := &Memory{
		limit:   limit,
		window:  window,
		entries: make(map[string]*bucket),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allow never returns an error; the signature matches Limiter.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	return m.CheckAndConsume(key), nil
}

// CheckAndConsume resets an absent or elapsed window to count=1, rejects when
// the count already reached the limit, and otherwise increments.
func (m *Memory) CheckAndConsume(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.entries[key]
	if !ok || now.After(w.start.Add(m.window)) {
		if !ok {
			m.makeRoomLocked(now)
		}
		m.entries[key] = &bucket{count: 1, start: now}
		return true
	}

	if w.count >= m.limit {
		return false
	}
	w.count++
	return true
}

// Sweep drops every elapsed window and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

// Len returns the number of tracked identifiers.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Memory) sweepLocked(now time.Time) int {
	removed := 0
	for key, w := range m.entries {
		if now.After(w.start.Add(m.window)) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

func (m *Memory) makeRoomLocked(now time.Time) {
	if m.maxEntries <= 0 || len(m.entries) < m.maxEntries {
		return
	}
	if m.sweepLocked(now) > 0 {
		return
	}
	var oldestKey string
	var oldest time.Time
	for key, w := range m.entries {
		if oldestKey == "" || w.start.Before(oldest) {
			oldestKey, oldest = key, w.start
		}
	}
	delete(m.entries, oldestKey)
}
