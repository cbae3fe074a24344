package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/pivotal/pkg/cli"
	"mercator-hq/pivotal/pkg/config"
)

var exportFlags struct {
	input     string
	format    string
	chunkSize int
	workers   int
	outputs   []string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Ingest a long-format file and export wide rows",
	Long: `Load the input file into a fresh staging store, then run one export per
enabled output and print a summary. File outputs are uploaded to S3 when
output.s3 is enabled.

Exit codes: 0 success, 1 failure, 2 configuration error, 3 rows missing
from at least one output.

Examples:
  # Export using a config file
  pivotal export --config pivotal.yaml

  # Export a JSON Lines file to CSV and NDJSON
  pivotal export --input facts.jsonl --to csv,ndjson

  # Machine-readable summary
  pivotal export --input facts.csv -o json`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFlags.input, "input", "i", "", "override ingest.path")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", "", "input format (csv, jsonl); detected from the extension when empty")
	exportCmd.Flags().IntVar(&exportFlags.chunkSize, "chunk-size", 0, "override export.chunk_size")
	exportCmd.Flags().IntVar(&exportFlags.workers, "workers", -1, "override export.workers (0 = one per chunk)")
	exportCmd.Flags().StringSliceVar(&exportFlags.outputs, "to", nil, "enable only these outputs (csv, sqlite, postgres, ndjson)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := app.cfg
	if err := applyExportFlags(cmd, cfg); err != nil {
		return err
	}

	p := newPipeline(cfg, app.collector, progressWriter())
	summary, err := p.runFile(cmd.Context())
	if summary != nil && (summary.Ingest != nil || len(summary.Exports) > 0) {
		if ferr := cli.NewFormatter(app.format).FormatTo(cmd.OutOrStdout(), summary); ferr != nil && err == nil {
			err = ferr
		}
	}
	if err != nil {
		return cli.NewCommandError("export", err)
	}
	return nil
}

// applyExportFlags applies flag overrides and re-validates.
func applyExportFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Ingest.Path = exportFlags.input
	}
	if flags.Changed("format") {
		cfg.Ingest.Format = exportFlags.format
	}
	if flags.Changed("chunk-size") {
		cfg.Export.ChunkSize = exportFlags.chunkSize
	}
	if flags.Changed("workers") {
		cfg.Export.Workers = exportFlags.workers
	}
	if flags.Changed("to") {
		if err := selectOutputs(&cfg.Output, exportFlags.outputs); err != nil {
			return err
		}
	}
	return config.Validate(cfg)
}

// selectOutputs enables exactly the named outputs.
func selectOutputs(out *config.OutputConfig, names []string) error {
	out.CSV.Enabled = false
	out.SQLite.Enabled = false
	out.Postgres.Enabled = false
	out.NDJSON.Enabled = false
	for _, name := range names {
		switch name {
		case "csv":
			out.CSV.Enabled = true
		case "sqlite":
			out.SQLite.Enabled = true
		case "postgres":
			out.Postgres.Enabled = true
		case "ndjson":
			out.NDJSON.Enabled = true
		default:
			return cli.NewConfigError("--to", "unknown output "+name)
		}
	}
	if len(names) == 0 {
		return cli.NewConfigError("--to", "at least one output is required")
	}
	return nil
}

// progressWriter returns stderr unless progress is disabled or stderr is
// not a terminal.
func progressWriter() io.Writer {
	if noProgress {
		return nil
	}
	info, err := os.Stderr.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return nil
	}
	return os.Stderr
}
