// Package tracing installs OpenTelemetry tracing for pivotal.
//
// Packages start spans through the global otel API, so they stay no-ops
// until the CLI calls New with tracing enabled:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// # Spans
//
//   - pivot.export: one export run into one sink
//   - pivot.chunk: reading and pivoting one chunk, child of pivot.export
//   - publish.upload: one file uploaded to object storage
//
// Attribute keys live in the "pivotal.*" namespace (see attributes.go).
//
// # Exporter
//
// Spans are sent to an OTLP gRPC collector at telemetry.tracing.endpoint.
// The connection is lazy; an unreachable collector drops spans without
// failing exports.
package tracing
