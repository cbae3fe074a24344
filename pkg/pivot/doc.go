// Package pivot turns the sparse contents of an EAV staging store into dense
// wide rows and streams them to a Sink.
//
// # Pipeline
//
// An export runs in four steps:
//
//  1. DiscoverColumns fixes the column list: the caller's priority keys,
//     then every other key in the store.
//  2. Partition splits the entity ids into chunks of Config.ChunkSize.
//  3. PivotChunk runs once per chunk on its own read-only connection,
//     grouping attributes per entity and projecting them onto the columns.
//  4. The Exporter forwards each finished batch to the sink in completion
//     order.
//
// Rows inside a chunk keep the order of the scan. Rows of different chunks
// arrive in whatever order the chunks finish.
//
// # Concurrency
//
// Config.Workers bounds how many chunks are pivoted at the same time.
// Each worker opens a dedicated reader through the Source, so workers never
// share a connection with each other or with the writer.
//
// # Failure Handling
//
// Failing to discover columns, list ids, or write the header aborts the run
// before any worker starts. A chunk that cannot be read contributes no rows
// and is listed in Report.Failed; a batch the sink rejects is counted in
// Report.SinkFailures. Neither stops the run from reaching StateComplete.
//
// # Usage
//
//	exporter := pivot.NewExporter(store, pivot.Config{
//	    ChunkSize: 1000,
//	    Workers:   4,
//	    Priority:  []string{"name", "price"},
//	})
//
//	report, err := exporter.Export(ctx, csvSink)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(report.RowsWritten)
package pivot
