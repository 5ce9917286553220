package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCategory is the rate used when a category has no rate of its own.
const DefaultCategory = "default"

// Store keeps one limiter per client and category.
type Store struct {
	limiters map[string]*Limiter
	rates    map[string]Rate

	// idleExpiry is how long a limiter may go unused before eviction
	idleExpiry time.Duration

	now func() time.Time
	mu  sync.RWMutex
}

// NewStore creates a store applying defaultRate to every category without an explicit rate.
func NewStore(defaultRate Rate, idleExpiry time.Duration) *Store {
	return &Store{
		limiters:   make(map[string]*Limiter),
		rates:      map[string]Rate{DefaultCategory: defaultRate},
		idleExpiry: idleExpiry,
		now:        time.Now,
	}
}

func limiterKey(clientID, category string) string {
	return category + ":" + clientID
}

// GetLimiter returns the limiter for clientID within category, creating it on first use.
func (s *Store) GetLimiter(clientID, category string) *Limiter {
	key := limiterKey(clientID, category)

	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()
	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have created it in between
	if limiter, exists = s.limiters[key]; exists {
		return limiter
	}

	rate, ok := s.rates[category]
	if !ok {
		rate = s.rates[DefaultCategory]
	}
	limiter = newLimiterAt(rate.WritesPerSecond, rate.Burst, s.now)
	s.limiters[key] = limiter
	return limiter
}

// Allow consumes a token from the client's limiter for category.
func (s *Store) Allow(clientID, category string) bool {
	return s.GetLimiter(clientID, category).Allow()
}

// SetRate sets the rate for limiters created later in category.
func (s *Store) SetRate(category string, rate Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[category] = rate
}

// Len returns the number of live limiters.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

// Run evicts idle limiters every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes limiters idle for longer than the store's expiry.
func (s *Store) cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, limiter := range s.limiters {
		if limiter.idleSince(now) > s.idleExpiry {
			delete(s.limiters, key)
			removed++
		}
	}

	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(s.limiters)).Msg("Evicted idle rate limiters")
	}
	return removed
}
