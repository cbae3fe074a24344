/*
Package cli provides the output formatters, progress reporting and signal
handling shared by the pivotal commands.

Output Formatting:

Export summaries render as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, &cli.RunSummary{Exports: reports}); err != nil {
		return err
	}

Progress Reporting:

A progress bar follows the exporter's chunk drain:

	progress := cli.NewProgressReporter(os.Stderr, "chunks")
	exporter := pivot.NewExporter(src, cfg, pivot.WithStateHook(cli.ExportProgress(progress)))

Signal Handling:

	ctx := cli.SetupSignalHandler()
	// ctx is cancelled on SIGINT/SIGTERM
*/
package cli
