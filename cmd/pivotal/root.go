package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/pivotal/pkg/cli"
	"mercator-hq/pivotal/pkg/config"
	"mercator-hq/pivotal/pkg/telemetry/logging"
	"mercator-hq/pivotal/pkg/telemetry/metrics"
	"mercator-hq/pivotal/pkg/telemetry/tracing"
)

var (
	// Global flags
	cfgFile      string
	logLevel     string
	outputFormat string
	noProgress   bool
)

// app holds what PersistentPreRunE builds for the subcommands.
var app struct {
	cfg       *config.Config
	collector *metrics.Collector
	tracer    *tracing.Tracer
	format    cli.OutputFormat
}

// skipSetup marks commands that run without configuration.
const skipSetup = "skip-setup"

var rootCmd = &cobra.Command{
	Use:   "pivotal",
	Short: "Pivot entity/attribute/value facts into wide rows",
	Long: `Pivotal loads long-format facts (entity, key, value) into a SQLite
staging store and exports them as wide rows: one row per entity, one column
per distinct key. Rows go to CSV, SQLite, Postgres or NDJSON, and finished
files can be published to S3.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

// Execute runs the root command and exits with a code derived from the
// returned error.
func Execute() {
	err := rootCmd.ExecuteContext(cli.SetupSignalHandler())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = teardown()
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus PIVOTAL_* env when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "summary format (text, json, csv)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	app.format = format

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	app.cfg = cfg

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()

	app.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	app.tracer = tracer

	slog.Debug("configuration loaded",
		"config", cfgFile,
		"outputs", cfg.Output.EnabledOutputs(),
		"tracing", tracer.Enabled(),
	)
	return nil
}

func teardown() error {
	if app.tracer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := app.tracer.Shutdown(ctx)
	app.tracer = nil
	return err
}
