// Package ratelimit provides per-endpoint token bucket rate limiting.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter tracks one token bucket per endpoint key. Burst capacity equals
// the per-second rate; an endpoint with no configured rate is never limited.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	level     float64
	perSecond float64
	topped    time.Time
}

// New creates a new rate limiter.
func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket)}
}

// Allow reports whether the endpoint may send now, consuming one token if
// so. A perSecond of 0 means unlimited.
func (l *Limiter) Allow(endpointKey string, perSecond int) bool {
	if perSecond <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[endpointKey]
	if !ok {
		// New buckets start full so a freshly registered endpoint can
		// burst up to its rate immediately.
		b = &bucket{level: float64(perSecond), perSecond: float64(perSecond), topped: time.Now()}
		l.buckets[endpointKey] = b
	}

	now := time.Now()
	b.level += now.Sub(b.topped).Seconds() * b.perSecond
	if b.level > b.perSecond {
		b.level = b.perSecond
	}
	b.topped = now

	if b.level < 1 {
		return false
	}
	b.level--
	return true
}

// Wait blocks until a token is available or the context ends. A perSecond
// of 0 returns immediately.
func (l *Limiter) Wait(ctx context.Context, endpointKey string, perSecond int) error {
	if perSecond <= 0 {
		return nil
	}

	interval := time.Second / time.Duration(perSecond)
	for {
		if l.Allow(endpointKey, perSecond) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Reset drops the bucket for an endpoint, refilling it on next use.
func (l *Limiter) Reset(endpointKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, endpointKey)
}
