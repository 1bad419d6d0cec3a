package ratelimit

import (
	"sync"
	"time"
)

// CooldownGate is the process-wide circuit breaker flipped when the transport
// reports a rate-limit signal. While blocked, every higher-risk send must
// short-circuit without touching the transport. The block clears on its own
// once the deadline passes; there is no explicit reset.
type CooldownGate struct {
	mu           sync.RWMutex
	blockedUntil time.Time
	now          func() time.Time
}

// NewCooldownGate creates an unblocked gate.
func NewCooldownGate() *CooldownGate {
	return &CooldownGate{now: time.Now}
}

// Trip blocks the gate for the given duration. When a block is already in
// force the later deadline wins: a short trip never shortens an existing
// longer block.
func (g *CooldownGate) Trip(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	until := g.now().Add(d)
	if until.After(g.blockedUntil) {
		g.blockedUntil = until
	}
}

// IsBlocked reports whether the gate is currently in a cooldown window.
func (g *CooldownGate) IsBlocked() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.now().Before(g.blockedUntil)
}

// RemainingSeconds returns the whole seconds left in the block, or 0 when
// the gate is open.
func (g *CooldownGate) RemainingSeconds() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rem := g.blockedUntil.Sub(g.now())
	if rem <= 0 {
		return 0
	}
	return int(rem.Seconds())
}

// SetClock replaces the gate's time source. Intended for tests.
func (g *CooldownGate) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}
