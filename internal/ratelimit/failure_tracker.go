package ratelimit

import (
	"sync"
	"time"
)

// maxTrackedFailures bounds the failure log regardless of window size.
const maxTrackedFailures = 100

// FailureTracker keeps a sliding window of delivery-failure timestamps.
// It only feeds operator alerting; nothing gates on it.
type FailureTracker struct {
	mu         sync.Mutex
	timestamps []time.Time
	now        func() time.Time
}

// NewFailureTracker creates an empty tracker.
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{now: time.Now}
}

// RecordFailure appends the current time to the failure log, evicting the
// oldest entry when the log is full.
func (t *FailureTracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.timestamps) >= maxTrackedFailures {
		t.timestamps = t.timestamps[1:]
	}
	t.timestamps = append(t.timestamps, t.now())
}

// RecentFailureCount returns how many failures were recorded strictly within
// the trailing window, evicting entries that have aged out.
func (t *FailureTracker) RecentFailureCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cut := t.now().Add(-window)
	kept := t.timestamps[:0]
	for _, ts := range t.timestamps {
		if ts.After(cut) {
			kept = append(kept, ts)
		}
	}
	t.timestamps = kept
	return len(kept)
}

// SetClock replaces the tracker's time source. Intended for tests.
func (t *FailureTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}
