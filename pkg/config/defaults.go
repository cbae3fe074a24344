package config

import "time"

// Default values for configuration fields.
const (
	// Store defaults
	DefaultStorePath        = "data/staging.db"
	DefaultStoreBusyTimeout = 5 * time.Second

	// Ingest defaults
	DefaultIngestEntityColumn = "entity"
	DefaultIngestKeyColumn    = "key"
	DefaultIngestValueColumn  = "value"
	DefaultIngestDelimiter    = ","
	DefaultIngestBatchSize    = 500

	// Export defaults
	DefaultExportChunkSize = 1000
	DefaultExportWorkers   = 4

	// Output defaults
	DefaultCSVPath      = "data/export.csv"
	DefaultCSVDelimiter = ","
	DefaultSQLitePath   = "data/export.db"
	DefaultTable        = "wide_rows"
	DefaultNDJSONPath   = "data/export.ndjson"

	// Schedule defaults
	DefaultScheduleDebounce = 500 * time.Millisecond

	// Demo defaults
	DefaultDemoEntities            = 1000
	DefaultDemoKeys                = 50
	DefaultDemoAttributesPerEntity = 10

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultPrometheusPath       = "/metrics"
	DefaultMetricsNamespace     = "pivotal"
	DefaultTracingSampler       = "always"
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingTimeout       = 10 * time.Second
	DefaultTracingServiceName   = "pivotal"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Store defaults
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = DefaultStoreBusyTimeout
	}

	// Ingest defaults
	if cfg.Ingest.EntityColumn == "" {
		cfg.Ingest.EntityColumn = DefaultIngestEntityColumn
	}
	if cfg.Ingest.KeyColumn == "" {
		cfg.Ingest.KeyColumn = DefaultIngestKeyColumn
	}
	if cfg.Ingest.ValueColumn == "" {
		cfg.Ingest.ValueColumn = DefaultIngestValueColumn
	}
	if cfg.Ingest.Delimiter == "" {
		cfg.Ingest.Delimiter = DefaultIngestDelimiter
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = DefaultIngestBatchSize
	}

	// Export defaults. A zero worker count in YAML reads as unset; use
	// PIVOTAL_EXPORT_WORKERS=0 or --workers 0 for one worker per chunk.
	if cfg.Export.ChunkSize == 0 {
		cfg.Export.ChunkSize = DefaultExportChunkSize
	}
	if cfg.Export.Workers == 0 {
		cfg.Export.Workers = DefaultExportWorkers
	}

	applyOutputDefaults(&cfg.Output)

	// Schedule defaults
	if cfg.Schedule.Debounce == 0 {
		cfg.Schedule.Debounce = DefaultScheduleDebounce
	}

	// Demo defaults
	if cfg.Demo.Entities == 0 {
		cfg.Demo.Entities = DefaultDemoEntities
	}
	if cfg.Demo.Keys == 0 {
		cfg.Demo.Keys = DefaultDemoKeys
	}
	if cfg.Demo.AttributesPerEntity == 0 {
		cfg.Demo.AttributesPerEntity = DefaultDemoAttributesPerEntity
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
}

// applyOutputDefaults fills sink paths and enables CSV when no sink is on.
func applyOutputDefaults(out *OutputConfig) {
	if len(out.EnabledOutputs()) == 0 {
		out.CSV.Enabled = true
	}

	if out.CSV.Path == "" {
		out.CSV.Path = DefaultCSVPath
	}
	if out.CSV.Delimiter == "" {
		out.CSV.Delimiter = DefaultCSVDelimiter
	}
	if out.SQLite.Path == "" {
		out.SQLite.Path = DefaultSQLitePath
	}
	if out.SQLite.Table == "" {
		out.SQLite.Table = DefaultTable
	}
	if out.Postgres.Table == "" {
		out.Postgres.Table = DefaultTable
	}
	if out.NDJSON.Path == "" {
		out.NDJSON.Path = DefaultNDJSONPath
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
