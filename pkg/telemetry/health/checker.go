package health

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Overall states reported by the liveness and readiness endpoints.
const (
	StatusOK    = "ok"
	StatusReady = "ready"

	// StatusDegraded means exports can still run but something needs
	// attention: an advisory check fails, the last export failed, or no
	// export finished within the expected window.
	StatusDegraded = "degraded"

	// StatusUnavailable means a required check fails, so the next export
	// cannot succeed (for example the watched input is gone).
	StatusUnavailable = "unavailable"
)

// Per-check states.
const (
	ResultOK        = "ok"
	ResultUnhealthy = "unhealthy"
)

// DefaultCheckTimeout bounds a single check when New is given zero.
const DefaultCheckTimeout = 5 * time.Second

// ErrCheckTimeout is reported when a check does not finish in time.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckFunc checks one dependency of the watch process. It returns nil
// when the dependency is usable.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Required bool          `json:"required,omitempty"`
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// HealthStatus is the body of /health and /ready.
type HealthStatus struct {
	Status     string                 `json:"status"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	LastExport *RunStatus             `json:"last_export,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

type registered struct {
	fn       CheckFunc
	required bool
}

// Checker aggregates dependency checks and the export run history into
// one readiness state.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]registered
	runs         *RunTracker
	checkTimeout time.Duration
}

// New creates a checker. A zero timeout uses DefaultCheckTimeout.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Checker{
		checks:       make(map[string]registered),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck adds an advisory check. When it fails readiness is
// degraded. A check with the same name is replaced.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.register(name, check, false)
}

// RequireCheck adds a check without which no export can succeed. When it
// fails readiness is unavailable.
func (c *Checker) RequireCheck(name string, check CheckFunc) {
	c.register(name, check, true)
}

func (c *Checker) register(name string, check CheckFunc, required bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registered{fn: check, required: required}
}

// UnregisterCheck removes a named check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// TrackRuns folds the export history of t into readiness: a failed or
// stale last export degrades it.
func (c *Checker) TrackRuns(t *RunTracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = t
}

// ListChecks returns the registered check names in order.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.checks))
}

// CheckLiveness reports that the process is running.
func (c *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	return HealthStatus{Status: StatusOK, Timestamp: time.Now()}
}

// CheckReadiness runs every check concurrently and combines them with the
// last export outcome. A failing required check wins over everything else.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	c.mu.RLock()
	names := slices.Sorted(maps.Keys(c.checks))
	checks := make([]registered, len(names))
	for i, name := range names {
		checks[i] = c.checks[name]
	}
	runs := c.runs
	c.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, chk := range checks {
		g.Go(func() error {
			results[i] = c.runCheck(ctx, chk)
			return nil
		})
	}
	_ = g.Wait()

	status := HealthStatus{
		Status:    StatusReady,
		Checks:    make(map[string]CheckResult, len(names)),
		Timestamp: time.Now(),
	}
	for i, name := range names {
		r := results[i]
		status.Checks[name] = r
		if r.Status == ResultOK {
			continue
		}
		if r.Required {
			status.Status = StatusUnavailable
		} else if status.Status == StatusReady {
			status.Status = StatusDegraded
		}
	}

	if runs != nil {
		last := runs.Status()
		status.LastExport = &last
		if last.Failing() && status.Status == StatusReady {
			status.Status = StatusDegraded
		}
	}
	return status
}

// runCheck runs one check under the checker's timeout. A check that
// ignores its context is abandoned once the timeout passes.
func (c *Checker) runCheck(ctx context.Context, chk registered) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- chk.fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	r := CheckResult{Status: ResultOK, Required: chk.required, Duration: time.Since(start)}
	if err != nil {
		r.Status = ResultUnhealthy
		r.Message = err.Error()
	}
	return r
}
