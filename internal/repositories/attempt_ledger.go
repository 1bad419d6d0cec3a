package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dayFormat = "2006-01-02"

// AttemptLedger is the durable per-user, per-day attempt counter backing the
// daily quiz quota. State lives in a JSON file keyed user id -> day -> count;
// the file survives restarts, is created empty when missing, and unparseable
// content is treated as empty rather than fatal.
type AttemptLedger struct {
	path      string
	maxPerDay int
	logger    *slog.Logger

	mu     sync.Mutex
	counts map[string]map[string]int
	now    func() time.Time
}

// NewAttemptLedger loads (or creates) the ledger file at path.
func NewAttemptLedger(path string, maxPerDay int, logger *slog.Logger) (*AttemptLedger, error) {
	l := &AttemptLedger{
		path:      path,
		maxPerDay: maxPerDay,
		logger:    logger,
		counts:    make(map[string]map[string]int),
		now:       time.Now,
	}

	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *AttemptLedger) load() error {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return l.persistLocked()
	}
	if err != nil {
		return fmt.Errorf("read attempt ledger: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &l.counts); err != nil {
			l.logger.Warn("attempt ledger unparseable, starting empty",
				slog.String("path", l.path),
				slog.Any("error", err))
			l.counts = make(map[string]map[string]int)
		}
	}
	if l.counts == nil {
		l.counts = make(map[string]map[string]int)
	}
	return nil
}

// CanAttempt reports whether the user's recorded count for today is below
// the daily maximum. Unknown users are always eligible.
func (l *AttemptLedger) CanAttempt(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[userID][l.today()] < l.maxPerDay
}

// RecordAttempt increments today's count for the user and persists the
// ledger. Counts are clamped at the daily maximum.
func (l *AttemptLedger) RecordAttempt(userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.today()
	if l.counts[userID] == nil {
		l.counts[userID] = make(map[string]int)
	}
	if l.counts[userID][today] >= l.maxPerDay {
		l.logger.Warn("attempt recorded at daily cap",
			slog.String("user_id", userID))
		return nil
	}
	l.counts[userID][today]++

	return l.persistLocked()
}

// RemainingAttempts returns how many attempts the user has left today,
// always within [0, maxPerDay].
func (l *AttemptLedger) RemainingAttempts(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rem := l.maxPerDay - l.counts[userID][l.today()]
	if rem < 0 {
		return 0
	}
	return rem
}

// PruneBefore deletes day entries older than the cutoff and removes users
// with no days left. It returns the number of day entries removed.
func (l *AttemptLedger) PruneBefore(cutoff time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoffDay := cutoff.UTC().Format(dayFormat)
	removed := 0
	for userID, days := range l.counts {
		for day := range days {
			if day < cutoffDay {
				delete(days, day)
				removed++
			}
		}
		if len(days) == 0 {
			delete(l.counts, userID)
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, l.persistLocked()
}

// persistLocked writes the ledger through a temp file plus rename so readers
// never observe a partially written record. Caller must hold l.mu.
func (l *AttemptLedger) persistLocked() error {
	data, err := json.MarshalIndent(l.counts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode attempt ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".attempts-*.json")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write attempt ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ledger temp file: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace attempt ledger: %w", err)
	}
	return nil
}

func (l *AttemptLedger) today() string {
	return l.now().UTC().Format(dayFormat)
}

// SetClock replaces the ledger's time source. Intended for tests.
func (l *AttemptLedger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
