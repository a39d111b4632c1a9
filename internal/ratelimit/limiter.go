// Package ratelimit implements a per-identity sliding-window admission gate.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most limit requests per identity within any window.
// It satisfies echo's middleware.RateLimiterStore.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string][]time.Time
	lastSweep time.Time
}

// New creates a limiter. limit < 1 is treated as 1.
func New(limit int, window time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string][]time.Time),
	}
}

// Admit prunes timestamps older than the window, then records and accepts
// the request if fewer than limit remain. Rejected requests are not recorded.
func (l *Limiter) Admit(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}
	stamps := l.prune(identity, now)
	if len(stamps) >= l.limit {
		return false
	}
	l.windows[identity] = append(stamps, now)
	return true
}

// Allow implements middleware.RateLimiterStore.
func (l *Limiter) Allow(identifier string) (bool, error) {
	return l.Admit(identifier), nil
}

// RetryAfter returns how long until identity regains one slot.
func (l *Limiter) RetryAfter(identity string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps := l.prune(identity, now)
	if len(stamps) < l.limit {
		return 0
	}
	return stamps[0].Add(l.window).Sub(now)
}

// Window returns the configured window width.
func (l *Limiter) Window() time.Duration { return l.window }

// prune must be called with mu held.
func (l *Limiter) prune(identity string, now time.Time) []time.Time {
	stamps := l.windows[identity]
	cutoff := now.Add(-l.window)

	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	stamps = stamps[i:]

	if len(stamps) == 0 {
		delete(l.windows, identity)
		return nil
	}
	l.windows[identity] = stamps
	return stamps
}

// sweep drops identities whose whole window has expired. mu must be held.
func (l *Limiter) sweep(now time.Time) {
	for identity := range l.windows {
		l.prune(identity, now)
	}
	l.lastSweep = now
}
