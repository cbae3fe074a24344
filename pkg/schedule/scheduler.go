package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler reruns the export on a cron schedule.
type Scheduler struct {
	spec   string
	runner *Runner
	cron   *cron.Cron
	mu     sync.Mutex
	logger *slog.Logger

	running bool
}

// NewScheduler creates a scheduler for a standard five-field cron
// expression. The expression is validated by Start.
func NewScheduler(spec string, runner *Runner) *Scheduler {
	return &Scheduler{
		spec:   spec,
		runner: runner,
		cron:   cron.New(),
		logger: slog.Default().With("component", "schedule.cron"),
	}
}

// ValidateSpec reports whether spec is a standard cron expression.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

// Interval returns the gap between the next two activations of spec after
// from. Irregular schedules such as "0 9 * * 1-5" give the upcoming gap.
func Interval(spec string, from time.Time) (time.Duration, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	next := sched.Next(from)
	return sched.Next(next).Sub(next), nil
}

// Start registers the job and starts the cron loop. An empty spec is a
// no-op. The scheduler stops itself when ctx is cancelled.
//
//   - "*/15 * * * *" every 15 minutes
//   - "0 2 * * *"    daily at 2 AM
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spec == "" {
		s.logger.Info("cron schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := ValidateSpec(s.spec); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.spec, func() {
		s.logger.Info("starting scheduled export")
		s.runner.Trigger(ctx, TriggerCron)
	}); err != nil {
		return fmt.Errorf("failed to schedule export: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("export scheduler started", "schedule", s.spec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		done := s.cron.Stop()
		<-done.Done()
		s.running = false
		s.logger.Info("export scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled export, or nil when nothing is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	if next.IsZero() {
		return nil
	}
	return &next
}
