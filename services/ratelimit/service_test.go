package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAllowWithinBudget(t *testing.T) {
	s := NewService(3, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		assert.True(t, s.Allow("alice@example.com"), "attempt %d", i+1)
	}
	assert.False(t, s.Allow("alice@example.com"), "budget exhausted")
}

func TestKeysAreIndependent(t *testing.T) {
	s := NewService(1, time.Minute, zap.NewNop())

	assert.True(t, s.Allow("alice@example.com"))
	assert.False(t, s.Allow("alice@example.com"))
	assert.True(t, s.Allow("bob@example.com"))
}

func TestBudgetRefillsOverTime(t *testing.T) {
	// 2 attempts per 100ms window refills one attempt every 50ms.
	s := NewService(2, 100*time.Millisecond, zap.NewNop())

	assert.True(t, s.Allow("k"))
	assert.True(t, s.Allow("k"))
	assert.False(t, s.Allow("k"))

	time.Sleep(120 * time.Millisecond)
	assert.True(t, s.Allow("k"))
}
