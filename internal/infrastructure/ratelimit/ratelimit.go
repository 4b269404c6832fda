// Package ratelimit holds a token bucket per key (client IP for the public
// endpoints). Buckets unused for longer than the idle window are dropped.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages one independent limiter per key.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing perMinute requests per key per minute with
// the given burst. idle <= 0 keeps buckets forever.
func New(perMinute, burst int, idle time.Duration) *KeyedRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &KeyedRateLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Allow reports whether a request for key may proceed now.
func (l *KeyedRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = l.now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

// Len returns the number of tracked keys.
func (l *KeyedRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Evict drops buckets idle for longer than the idle window and returns how
// many were removed.
func (l *KeyedRateLimiter) Evict() int {
	if l.idle <= 0 {
		return 0
	}
	cutoff := l.now().Add(-l.idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Run evicts idle buckets every interval until Stop is called.
func (l *KeyedRateLimiter) Run(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			l.Evict()
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (l *KeyedRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
