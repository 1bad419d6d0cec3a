package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/verdantchat/gatekeeper/internal/ratelimit"
)

func TestCooldownGate_StartsUnblocked(t *testing.T) {
	gate := ratelimit.NewCooldownGate()

	assert.False(t, gate.IsBlocked())
	assert.Equal(t, 0, gate.RemainingSeconds())
}

func TestCooldownGate_TripBlocksForDuration(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := ratelimit.NewCooldownGate()
	gate.SetClock(func() time.Time { return current })

	gate.Trip(15 * time.Minute)

	assert.True(t, gate.IsBlocked())
	assert.InDelta(t, 900, gate.RemainingSeconds(), 1)

	// Advance past the deadline; the block clears implicitly
	current = current.Add(15*time.Minute + time.Second)
	assert.False(t, gate.IsBlocked())
	assert.Equal(t, 0, gate.RemainingSeconds())
}

func TestCooldownGate_ShorterTripDoesNotShortenBlock(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := ratelimit.NewCooldownGate()
	gate.SetClock(func() time.Time { return current })

	gate.Trip(30 * time.Minute)
	gate.Trip(5 * time.Minute)

	assert.InDelta(t, 1800, gate.RemainingSeconds(), 1)
}

func TestCooldownGate_LaterTripExtendsBlock(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := ratelimit.NewCooldownGate()
	gate.SetClock(func() time.Time { return current })

	gate.Trip(5 * time.Minute)
	gate.Trip(30 * time.Minute)

	assert.InDelta(t, 1800, gate.RemainingSeconds(), 1)
}
