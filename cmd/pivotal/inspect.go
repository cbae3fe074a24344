package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/pivotal/pkg/cli"
	"mercator-hq/pivotal/pkg/config"
)

var inspectFlags struct {
	input  string
	format string
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Stage the input and list each entity with its raw attributes",
	Long: `Load the input file into a fresh staging store and print every entity
with its attributes in insertion order. Nothing is pivoted: a key written
twice for one entity is listed twice, which shows what "last write wins"
will resolve during export.

Examples:
  pivotal inspect --input facts.csv

  # Long-format CSV with entity ids
  pivotal inspect --input facts.jsonl -o csv`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectFlags.input, "input", "i", "", "override ingest.path")
	inspectCmd.Flags().StringVar(&inspectFlags.format, "format", "", "input format (csv, jsonl); detected from the extension when empty")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := app.cfg
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Ingest.Path = inspectFlags.input
	}
	if flags.Changed("format") {
		cfg.Ingest.Format = inspectFlags.format
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	p := newPipeline(cfg, app.collector, nil)
	dec, closer, format, err := p.openInput()
	if err != nil {
		return cli.NewCommandError("inspect", err)
	}
	defer closer.Close()

	ctx := cmd.Context()
	store, _, err := p.stage(ctx, dec, format)
	if store != nil {
		defer store.Close()
	}
	if err != nil {
		return cli.NewCommandError("inspect", err)
	}

	entities, err := list(ctx, store)
	if err != nil {
		return cli.NewCommandError("inspect", err)
	}
	return cli.NewFormatter(app.format).FormatEntitiesTo(cmd.OutOrStdout(), entities)
}
