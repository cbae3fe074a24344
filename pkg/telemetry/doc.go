// Package telemetry groups the observability packages used by pivotal.
//
// # Components
//
//   - logging: slog handlers built from telemetry.logging, with credential
//     redaction and per-run context fields (run_id, sink, trigger)
//   - metrics: a Prometheus collector that observes export runs, ingest
//     batches and S3 uploads on a private registry
//   - tracing: an OTLP tracer provider; exports, chunks and uploads each
//     get a span
//   - health: liveness and readiness checks served by "pivotal watch"
//
// # Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides(path)
//	if err != nil {
//		return err
//	}
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//		return err
//	}
//	logger.SetDefault()
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	exporter := pivot.NewExporter(store, pivot.DefaultConfig(), pivot.WithObserver(collector))
//
// Nothing here is required by pkg/eav or pkg/pivot beyond the Observer
// interface and the global otel tracer; both are no-ops until configured.
package telemetry
