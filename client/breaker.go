package client

import (
	"sync"
	"time"
)

// refreshBreaker bounds how often the client may attempt a token refresh.
// It keeps a rolling window of attempt timestamps; once the window holds
// maxAttempts entries, further attempts are refused until old entries age
// out. This stops a broken session from looping login redirects.
type refreshBreaker struct {
	mu          sync.Mutex
	attempts    []time.Time
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func newRefreshBreaker(maxAttempts int, window time.Duration) *refreshBreaker {
	return &refreshBreaker{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Allow records an attempt and reports whether it may proceed.
func (b *refreshBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.window)
	kept := b.attempts[:0]
	for _, t := range b.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.attempts = kept

	if len(b.attempts) >= b.maxAttempts {
		return false
	}
	b.attempts = append(b.attempts, b.now())
	return true
}

// Reset clears the window after a successful refresh.
func (b *refreshBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = b.attempts[:0]
}
