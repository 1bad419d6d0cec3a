package background

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLedger struct {
	calls atomic.Int64
}

func (c *countingLedger) PruneBefore(cutoff time.Time) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

type countingCooldowns struct {
	calls atomic.Int64
}

func (c *countingCooldowns) PruneCooldowns() int {
	c.calls.Add(1)
	return 0
}

func TestPruneManager_RunsImmediatelyAndOnTick(t *testing.T) {
	ledger := &countingLedger{}
	cooldowns := &countingCooldowns{}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	pm := NewPruneManager(ledger, cooldowns, logger, 10*time.Millisecond, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		pm.Start(context.Background())
	}()

	// One run on start, more as the ticker fires
	require.Eventually(t, func() bool {
		return ledger.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	pm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prune manager did not stop")
	}

	assert.GreaterOrEqual(t, cooldowns.calls.Load(), int64(2))
}

func TestPruneManager_StopsOnContextCancel(t *testing.T) {
	ledger := &countingLedger{}
	cooldowns := &countingCooldowns{}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	pm := NewPruneManager(ledger, cooldowns, logger, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pm.Start(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prune manager did not honor context cancellation")
	}

	assert.Equal(t, int64(1), ledger.calls.Load())
}
