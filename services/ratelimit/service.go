// Package ratelimit provides a defensive time-windowed attempt limiter for
// the login endpoint. It is in-process and per-key; it is not a clustered
// rate limiting design.
package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Service limits attempts per key (login email or client IP) to a fixed
// number within a rolling window.
type Service struct {
	attempts int
	window   time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	limiters map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// staleAfter controls eviction of idle per-key limiters.
const staleAfter = 10 * time.Minute

// NewService creates a limiter allowing the given number of attempts per window.
func NewService(attempts int, window time.Duration, logger *zap.Logger) *Service {
	return &Service{
		attempts: attempts,
		window:   window,
		logger:   logger,
		limiters: make(map[string]*entry),
	}
}

// Allow reports whether another attempt for key is within the limit.
func (s *Service) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.limiters[key]
	if !ok {
		// Refill one attempt per window/attempts, burst of the full budget.
		e = &entry{
			limiter: rate.NewLimiter(rate.Every(s.window/time.Duration(s.attempts)), s.attempts),
		}
		s.limiters[key] = e
	}
	e.lastSeen = now

	s.evictStale(now)

	allowed := e.limiter.Allow()
	if !allowed {
		s.logger.Warn("attempt rate limit exceeded", zap.String("key", key))
	}
	return allowed
}

// evictStale drops limiters idle beyond staleAfter. Caller holds the lock.
func (s *Service) evictStale(now time.Time) {
	for key, e := range s.limiters {
		if now.Sub(e.lastSeen) > staleAfter {
			delete(s.limiters, key)
		}
	}
}
