package ratelimit

import (
	"sync"
	"time"

	"github.com/khanhnv2901/siteaudit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/siteaudit/internal/shared/errors"
)

// Limiter is a sliding-window admission gate keyed by client identity.
// State is in-memory and scoped to process uptime; restarting the
// service resets all windows.
//
// The check and the admission happen under one lock so two concurrent
// requests can never both squeeze through the last remaining slot.
type Limiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects a synthetic clock. Tests use this to advance time
// deterministically instead of sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter admitting limit requests per key inside one
// rolling window. Non-positive arguments fall back to the defaults.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = constants.DefaultAuditLimit
	}
	if window <= 0 {
		window = constants.DefaultAuditWindow
	}
	l := &Limiter{
		entries: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow admits or rejects one request for the given key. On rejection it
// returns ErrRateLimitExceeded; RetryAfter reports how long until a slot
// frees up.
func (l *Limiter) Allow(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(key, now)

	if len(recent) >= l.limit {
		return sharedErrors.ErrRateLimitExceeded
	}

	l.entries[key] = append(recent, now)
	return nil
}

// RetryAfter returns how long the given key must wait before the next
// request would be admitted. Zero means a request would pass right now.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(key, now)
	if len(recent) < l.limit {
		return 0
	}
	return recent[0].Add(l.window).Sub(now)
}

// Evict drops keys with no activity inside the current window. Active
// windows are untouched, so eviction can never alter an admission count.
func (l *Limiter) Evict() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.entries {
		if len(l.prune(key, now)) == 0 {
			delete(l.entries, key)
		}
	}
}

// prune drops timestamps older than the window and stores the survivors.
// Caller must hold the lock.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	stamps := l.entries[key]
	cutoff := now.Add(-l.window)
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.entries[key] = kept
	return kept
}
