package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/pivotal/pkg/cli"
	"mercator-hq/pivotal/pkg/config"
	"mercator-hq/pivotal/pkg/schedule"
	"mercator-hq/pivotal/pkg/server"
	"mercator-hq/pivotal/pkg/telemetry/health"
	"mercator-hq/pivotal/pkg/telemetry/logging"
)

var watchFlags struct {
	input   string
	cron    string
	noStart bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-export when the input changes or on a schedule",
	Long: `Run the export pipeline repeatedly: after writes to the input file settle
(schedule.watch_input) and/or on a cron schedule (schedule.cron). Runs never
overlap; triggers that arrive during a run collapse into one follow-up run.

When telemetry.metrics.enabled is set, Prometheus metrics and /health,
/ready and /version are served on telemetry.metrics.listen_address.

Examples:
  # Watch the configured input
  pivotal watch --config pivotal.yaml

  # Export every 15 minutes
  pivotal watch --input facts.csv --cron "*/15 * * * *"`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.input, "input", "i", "", "override ingest.path and watch it")
	watchCmd.Flags().StringVar(&watchFlags.cron, "cron", "", "override schedule.cron")
	watchCmd.Flags().BoolVar(&watchFlags.noStart, "no-initial-run", false, "wait for the first trigger instead of exporting at startup")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := app.cfg
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Ingest.Path = watchFlags.input
		cfg.Schedule.WatchInput = true
	}
	if flags.Changed("cron") {
		cfg.Schedule.Cron = watchFlags.cron
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if cfg.Schedule.Cron == "" && !cfg.Schedule.WatchInput {
		return cli.NewConfigError("schedule", "set schedule.cron or schedule.watch_input")
	}

	w := newWatcher(cfg, cmd)
	if err := w.run(cmd.Context(), !watchFlags.noStart); err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

// watcher wires the pipeline to its triggers and the telemetry server.
type watcher struct {
	cfg      *config.Config
	source   *config.Source
	pipeline *pipeline
	tracker  *health.RunTracker
	checker  *health.Checker
	format   cli.OutputFormat
	cmd      *cobra.Command
	logger   *slog.Logger

	outMu sync.Mutex
}

func newWatcher(cfg *config.Config, cmd *cobra.Command) *watcher {
	w := &watcher{
		cfg:      cfg,
		source:   config.NewSource(cfgFile, cfg, pinStartup(cfg)),
		pipeline: newPipeline(cfg, app.collector, nil),
		tracker:  health.NewRunTracker(staleAfter(cfg.Schedule.Cron)),
		checker:  health.New(2 * time.Second),
		format:   app.format,
		cmd:      cmd,
		logger:   slog.Default().With("component", "watch"),
	}
	w.checker.RequireCheck("input", health.PathCheck(cfg.Ingest.Path))
	w.checker.RegisterCheck("store_dir", health.PathCheck(filepath.Dir(cfg.Store.Path)))
	w.checker.TrackRuns(w.tracker)
	return w
}

// staleAfter is how long readiness tolerates no finished export: two cron
// intervals, or forever without a cron schedule.
func staleAfter(spec string) time.Duration {
	if spec == "" {
		return 0
	}
	interval, err := schedule.Interval(spec, time.Now())
	if err != nil {
		return 0
	}
	return 2 * interval
}

// pinStartup keeps the settings a running watch cannot change: the watched
// input, the triggers, and telemetry built at startup.
func pinStartup(startup *config.Config) func(*config.Config) {
	return func(next *config.Config) {
		next.Ingest.Path = startup.Ingest.Path
		next.Schedule = startup.Schedule
		next.Telemetry = startup.Telemetry
	}
}

// cycle is one export triggered by trigger. The config file is re-read
// first so edits to outputs and export settings apply to this run.
func (w *watcher) cycle(ctx context.Context, trigger string) error {
	ctx = logging.WithTrigger(ctx, trigger)
	logging.FromContext(ctx, w.logger).Info("export triggered")

	// A failed reload is logged by the source; the last good config runs.
	if cfg, _ := w.source.Reload(); cfg != w.pipeline.cfg {
		next := newPipeline(cfg, w.pipeline.collector, w.pipeline.progress)
		next.newPublisher = w.pipeline.newPublisher
		w.pipeline = next
	}

	summary, err := w.pipeline.runFile(ctx)
	w.tracker.Record(trigger, err)

	if summary != nil && len(summary.Exports) > 0 {
		w.outMu.Lock()
		ferr := cli.NewFormatter(w.format).FormatTo(w.cmd.OutOrStdout(), summary)
		w.outMu.Unlock()
		if ferr != nil {
			w.logger.Warn("failed to print summary", "error", ferr)
		}
	}
	return err
}

func (w *watcher) run(ctx context.Context, initial bool) error {
	runner := schedule.NewRunner(w.cycle)
	g, ctx := errgroup.WithContext(ctx)

	if w.cfg.Telemetry.Metrics.Enabled {
		srv := server.NewServer(&w.cfg.Telemetry.Metrics, app.collector, w.checker, server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		})
		g.Go(func() error { return srv.Start(ctx) })
	}

	if w.cfg.Schedule.Cron != "" {
		sched := schedule.NewScheduler(w.cfg.Schedule.Cron, runner)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
		if next := sched.NextRun(); next != nil {
			w.logger.Info("next scheduled export", "at", next.Format(time.RFC3339))
		}
	}

	if w.cfg.Schedule.WatchInput {
		fw, err := schedule.NewFileWatcher(w.cfg.Ingest.Path, w.cfg.Schedule.Debounce)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return fw.Watch(ctx, func() { runner.Trigger(ctx, schedule.TriggerFile) })
		})
	}

	if initial {
		g.Go(func() error {
			runner.Trigger(ctx, schedule.TriggerStartup)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w.logger.Info("watch stopped", "runs", w.tracker.Runs())
	return nil
}
