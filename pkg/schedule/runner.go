package schedule

import (
	"context"
	"log/slog"
	"sync"
)

// Trigger names passed to a RunFunc.
const (
	TriggerStartup = "startup"
	TriggerCron    = "cron"
	TriggerFile    = "file"
)

// RunFunc performs one export cycle.
type RunFunc func(ctx context.Context, trigger string) error

// Runner serializes export cycles. A trigger that arrives while a cycle is
// in flight is remembered and replayed once when the cycle ends, so bursts
// collapse into at most one follow-up run.
type Runner struct {
	run    RunFunc
	logger *slog.Logger

	mu      sync.Mutex
	busy    bool
	pending string
}

// NewRunner wraps fn.
func NewRunner(fn RunFunc) *Runner {
	return &Runner{
		run:    fn,
		logger: slog.Default().With("component", "schedule.runner"),
	}
}

// Trigger runs a cycle on the calling goroutine, or queues one if a cycle
// is already running. It returns false when the trigger was queued.
func (r *Runner) Trigger(ctx context.Context, trigger string) bool {
	r.mu.Lock()
	if r.busy {
		r.pending = trigger
		r.mu.Unlock()
		r.logger.Debug("run in progress, queued", "trigger", trigger)
		return false
	}
	r.busy = true
	r.mu.Unlock()

	for {
		if ctx.Err() != nil {
			r.mu.Lock()
			r.busy = false
			r.pending = ""
			r.mu.Unlock()
			return true
		}

		if err := r.run(ctx, trigger); err != nil {
			r.logger.Error("run failed", "trigger", trigger, "error", err)
		}

		r.mu.Lock()
		if r.pending == "" {
			r.busy = false
			r.mu.Unlock()
			return true
		}
		trigger = r.pending
		r.pending = ""
		r.mu.Unlock()
	}
}

// Busy reports whether a cycle is in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}
