// Package metrics records Prometheus metrics for pivotal.
//
// # Metrics Categories
//
//   - Export: runs, durations, drained chunks, rows per sink, current state
//   - Ingest: attached and refused attributes, entities after load
//   - Publish: uploads of export files to object storage
//
// # Usage
//
// The Collector implements pivot.Observer, so an Exporter reports to it
// directly:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	exporter := pivot.NewExporter(store, exportCfg, pivot.WithObserver(collector))
//	http.Handle("/metrics", collector.Handler())
//
// Every collector owns a private registry unless one is passed in.
// Recording is a no-op when telemetry.metrics.enabled is false.
//
// # Prometheus Endpoint
//
//	# HELP pivotal_export_rows_total Total number of wide rows accepted by sinks
//	# TYPE pivotal_export_rows_total counter
//	pivotal_export_rows_total{sink="csv"} 1000
//
// # Cardinality Management
//
// Sink labels are capped; names past the limit are recorded as "other".
package metrics
