// Package ratelimit throttles write requests per client identity.
// Each client gets a token bucket; buckets idle for too long are evicted.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket for a single client identity.
// Tokens are added at a fixed rate and every allowed write consumes one.
type Limiter struct {
	tokens float64

	// lastRefill is the last time tokens were added to the bucket
	lastRefill time.Time

	// lastAccess is the last time Allow was called, used for eviction
	lastAccess time.Time

	rate     float64
	capacity float64

	now func() time.Time
	mu  sync.Mutex
}

// Rate controls how many writes per second are allowed
type Rate struct {
	// WritesPerSecond defines how many tokens are added per second
	WritesPerSecond float64

	// Burst defines the maximum size of the token bucket
	Burst int
}

// NewLimiter creates a full bucket refilling at rate tokens per second.
func NewLimiter(rate float64, burst int) *Limiter {
	return newLimiterAt(rate, burst, time.Now)
}

func newLimiterAt(rate float64, burst int, now func() time.Time) *Limiter {
	t := now()
	return &Limiter{
		tokens:     float64(burst),
		lastRefill: t,
		lastAccess: t,
		rate:       rate,
		capacity:   float64(burst),
		now:        now,
	}
}

// Allow reports whether a write may proceed and consumes a token if so.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.lastRefill = now
	l.lastAccess = now

	if l.tokens < 1 {
		return false
	}

	l.tokens--
	return true
}

// Tokens returns the tokens currently left in the bucket, without refilling.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens
}

// ResetTokens refills the bucket to capacity.
func (l *Limiter) ResetTokens() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = l.capacity
	l.lastRefill = l.now()
}

// idleSince reports how long the limiter has gone without an Allow call.
func (l *Limiter) idleSince(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.lastAccess)
}
