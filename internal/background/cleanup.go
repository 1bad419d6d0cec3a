package background

import (
	"context"
	"log/slog"
	"time"
)

// LedgerPruner removes attempt-ledger entries older than a cutoff.
type LedgerPruner interface {
	PruneBefore(cutoff time.Time) (int, error)
}

// CooldownPruner drops per-user cooldown stamps that no longer gate anything.
type CooldownPruner interface {
	PruneCooldowns() int
}

// PruneManager periodically trims expired ledger days and stale cooldown
// stamps so neither grows without bound.
type PruneManager struct {
	ledger    LedgerPruner
	cooldowns CooldownPruner
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

// NewPruneManager creates a prune manager. retention is how far back ledger
// day entries are kept.
func NewPruneManager(ledger LedgerPruner, cooldowns CooldownPruner, logger *slog.Logger, interval, retention time.Duration) *PruneManager {
	return &PruneManager{
		ledger:    ledger,
		cooldowns: cooldowns,
		logger:    logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic prune task. It runs once immediately and then on
// every tick until the context is done or Stop is called.
func (pm *PruneManager) Start(ctx context.Context) {
	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	pm.runPrune()

	for {
		select {
		case <-ticker.C:
			pm.runPrune()
		case <-pm.stopCh:
			pm.logger.Info("prune manager stopped")
			return
		case <-ctx.Done():
			pm.logger.Info("prune manager context cancelled")
			return
		}
	}
}

func (pm *PruneManager) runPrune() {
	cutoff := time.Now().Add(-pm.retention)

	days, err := pm.ledger.PruneBefore(cutoff)
	if err != nil {
		pm.logger.Error("failed to prune attempt ledger", slog.Any("error", err))
	} else if days > 0 {
		pm.logger.Info("attempt ledger pruned", slog.Int("day_entries_removed", days))
	}

	if stamps := pm.cooldowns.PruneCooldowns(); stamps > 0 {
		pm.logger.Info("cooldown stamps pruned", slog.Int("stamps_removed", stamps))
	}
}

// Stop signals the prune manager to stop.
func (pm *PruneManager) Stop() {
	close(pm.stopCh)
}
