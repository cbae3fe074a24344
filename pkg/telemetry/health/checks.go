package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// PathCheck reports unhealthy when path does not exist.
func PathCheck(path string) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		return nil
	}
}

// RunStatus describes the most recent export run.
type RunStatus struct {
	Runs    int       `json:"runs"`
	Trigger string    `json:"trigger,omitempty"`
	At      time.Time `json:"at,omitzero"`
	Error   string    `json:"error,omitempty"`

	// Stale is set when no run finished within the tracker's window.
	Stale bool `json:"stale,omitempty"`
}

// Failing reports whether the last run failed or is overdue.
func (s RunStatus) Failing() bool {
	return s.Error != "" || s.Stale
}

// RunTracker remembers the outcome of the most recent export run.
type RunTracker struct {
	mu       sync.RWMutex
	runs     int
	lastErr  error
	lastRun  time.Time
	trigger  string
	maxStale time.Duration
	now      func() time.Time
}

// NewRunTracker creates a tracker. A positive maxStale marks the status
// stale once no run has finished within that window. Before the first
// run nothing is stale: the watcher may be waiting for its first trigger.
func NewRunTracker(maxStale time.Duration) *RunTracker {
	return &RunTracker{maxStale: maxStale, now: time.Now}
}

// Record stores the result of one run.
func (t *RunTracker) Record(trigger string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.runs++
	t.lastErr = err
	t.lastRun = t.now()
	t.trigger = trigger
}

// Runs returns the number of recorded runs.
func (t *RunTracker) Runs() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.runs
}

// Status returns a snapshot of the last run.
func (t *RunTracker) Status() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := RunStatus{Runs: t.runs, Trigger: t.trigger, At: t.lastRun}
	if t.runs == 0 {
		return s
	}
	if t.lastErr != nil {
		s.Error = fmt.Sprintf("last %s run failed: %v", t.trigger, t.lastErr)
	}
	s.Stale = t.maxStale > 0 && t.now().Sub(t.lastRun) > t.maxStale
	return s
}
