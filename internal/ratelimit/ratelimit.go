// Package ratelimit implements a fixed-window request counter keyed by client
// identifier. State is process-local; each instance enforces its own limits.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Error reports an exceeded window and how long the caller should wait.
type Error struct {
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// RetryAfterSeconds returns the Retry-After header value, rounded up and
// never below one second.
func (e *Error) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key within a fixed window. Safe for concurrent
// use. Expired entries are swept lazily on each Check.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs a limiter allowing max requests per window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Check records one request for key. It returns *Error when the key has
// exhausted its window budget.
func (l *Limiter) Check(key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	e, ok := l.entries[key]
	if !ok || !e.resetAt.After(now) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return nil
	}

	if e.count >= l.max {
		return &Error{RetryAfter: e.resetAt.Sub(now)}
	}

	e.count++
	return nil
}

// Remaining reports how many requests the key has left in the current window.
func (l *Limiter) Remaining(key string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !e.resetAt.After(now) {
		return l.max
	}
	remaining := l.max - e.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Max returns the configured per-window budget.
func (l *Limiter) Max() int {
	return l.max
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, e := range l.entries {
		if !e.resetAt.After(now) {
			delete(l.entries, key)
		}
	}
}
