package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestNewLimiter(t *testing.T) {
	t.Run("Limiter starts with a full bucket", func(t *testing.T) {
		// Act
		limiter := NewLimiter(2, 10)

		// Assert
		require.NotNil(t, limiter)
		assert.Equal(t, float64(2), limiter.rate)
		assert.Equal(t, float64(10), limiter.capacity)
		assert.Equal(t, float64(10), limiter.Tokens())
		assert.False(t, limiter.lastRefill.IsZero())
	})

	t.Run("Zero burst is allowed", func(t *testing.T) {
		limiter := NewLimiter(2, 0)

		assert.Equal(t, float64(0), limiter.Tokens())
		assert.False(t, limiter.Allow())
	})
}

func TestLimiter_Allow(t *testing.T) {
	t.Run("Burst is consumed then denied", func(t *testing.T) {
		// Arrange
		clock := newFakeClock()
		limiter := newLimiterAt(2, 5, clock.Now)

		// Act & Assert
		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow(), "Expected write %d to be allowed", i+1)
		}
		assert.False(t, limiter.Allow(), "Expected 6th write to be denied")
	})

	t.Run("Tokens refill over time", func(t *testing.T) {
		// Arrange
		clock := newFakeClock()
		limiter := newLimiterAt(2, 1, clock.Now)

		// Act & Assert
		assert.True(t, limiter.Allow())
		assert.False(t, limiter.Allow())

		// At 2 per second a token arrives every 500ms
		clock.Advance(250 * time.Millisecond)
		assert.False(t, limiter.Allow())

		clock.Advance(250 * time.Millisecond)
		assert.True(t, limiter.Allow())
	})

	t.Run("Tokens are capped at capacity", func(t *testing.T) {
		// Arrange
		clock := newFakeClock()
		limiter := newLimiterAt(10, 5, clock.Now)
		for i := 0; i < 5; i++ {
			limiter.Allow()
		}

		// Act
		clock.Advance(10 * time.Second)
		success := 0
		for i := 0; i < 10; i++ {
			if limiter.Allow() {
				success++
			}
		}

		// Assert
		assert.Equal(t, 5, success)
	})

	t.Run("Zero rate means no refills", func(t *testing.T) {
		clock := newFakeClock()
		limiter := newLimiterAt(0, 3, clock.Now)
		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow())
		}

		clock.Advance(time.Hour)

		assert.False(t, limiter.Allow())
	})

	t.Run("Concurrent access is thread-safe", func(t *testing.T) {
		// Arrange
		limiter := newLimiterAt(0, 100, newFakeClock().Now)
		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0

		// Act
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow() {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		// Assert
		assert.Equal(t, 100, allowed)
	})
}

func TestLimiter_ResetTokens(t *testing.T) {
	clock := newFakeClock()
	limiter := newLimiterAt(0, 3, clock.Now)
	for i := 0; i < 3; i++ {
		limiter.Allow()
	}
	require.False(t, limiter.Allow())

	limiter.ResetTokens()

	assert.Equal(t, float64(3), limiter.Tokens())
	assert.True(t, limiter.Allow())
}

func TestLimiter_idleSince(t *testing.T) {
	clock := newFakeClock()
	limiter := newLimiterAt(1, 1, clock.Now)

	clock.Advance(time.Minute)
	assert.Equal(t, time.Minute, limiter.idleSince(clock.Now()))

	limiter.Allow()
	assert.Equal(t, time.Duration(0), limiter.idleSince(clock.Now()))
}
