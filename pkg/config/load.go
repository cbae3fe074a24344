package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix starts every environment override.
const envPrefix = "PIVOTAL_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention PIVOTAL_SECTION_FIELD (e.g., PIVOTAL_EXPORT_CHUNK_SIZE).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// A value that cannot be parsed is an error rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	e := envReader{}

	// Store
	e.str("STORE_PATH", &cfg.Store.Path)
	e.duration("STORE_BUSY_TIMEOUT", &cfg.Store.BusyTimeout)

	// Ingest
	e.str("INGEST_PATH", &cfg.Ingest.Path)
	e.str("INGEST_FORMAT", &cfg.Ingest.Format)
	e.str("INGEST_DELIMITER", &cfg.Ingest.Delimiter)
	e.integer("INGEST_BATCH_SIZE", &cfg.Ingest.BatchSize)

	// Export
	e.integer("EXPORT_CHUNK_SIZE", &cfg.Export.ChunkSize)
	e.integer("EXPORT_WORKERS", &cfg.Export.Workers)
	e.list("EXPORT_PRIORITY", &cfg.Export.Priority)

	// Output
	e.boolean("OUTPUT_CSV_ENABLED", &cfg.Output.CSV.Enabled)
	e.str("OUTPUT_CSV_PATH", &cfg.Output.CSV.Path)
	e.str("OUTPUT_CSV_DELIMITER", &cfg.Output.CSV.Delimiter)
	e.boolean("OUTPUT_SQLITE_ENABLED", &cfg.Output.SQLite.Enabled)
	e.str("OUTPUT_SQLITE_PATH", &cfg.Output.SQLite.Path)
	e.str("OUTPUT_SQLITE_TABLE", &cfg.Output.SQLite.Table)
	e.boolean("OUTPUT_POSTGRES_ENABLED", &cfg.Output.Postgres.Enabled)
	e.str("OUTPUT_POSTGRES_DSN", &cfg.Output.Postgres.DSN)
	e.str("OUTPUT_POSTGRES_TABLE", &cfg.Output.Postgres.Table)
	e.boolean("OUTPUT_NDJSON_ENABLED", &cfg.Output.NDJSON.Enabled)
	e.str("OUTPUT_NDJSON_PATH", &cfg.Output.NDJSON.Path)
	e.boolean("OUTPUT_S3_ENABLED", &cfg.Output.S3.Enabled)
	e.str("OUTPUT_S3_BUCKET", &cfg.Output.S3.Bucket)
	e.str("OUTPUT_S3_REGION", &cfg.Output.S3.Region)
	e.str("OUTPUT_S3_PREFIX", &cfg.Output.S3.Prefix)
	e.str("OUTPUT_S3_ENDPOINT", &cfg.Output.S3.Endpoint)

	// Schedule
	e.str("SCHEDULE_CRON", &cfg.Schedule.Cron)
	e.boolean("SCHEDULE_WATCH_INPUT", &cfg.Schedule.WatchInput)
	e.duration("SCHEDULE_DEBOUNCE", &cfg.Schedule.Debounce)

	// Telemetry
	e.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	e.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	e.boolean("TELEMETRY_LOGGING_REDACT_SECRETS", &cfg.Telemetry.Logging.RedactSecrets)
	e.boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	e.str("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	e.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	e.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	e.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	e.str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)

	if len(e.errs) > 0 {
		return ValidationError{Errors: e.errs}
	}
	return nil
}

// envReader reads PIVOTAL_* variables into config fields and collects
// parse failures.
type envReader struct {
	errs []FieldError
}

func (e *envReader) lookup(name string) (string, bool) {
	val, ok := os.LookupEnv(envPrefix + name)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (e *envReader) fail(name, val string, err error) {
	e.errs = append(e.errs, FieldError{
		Field:   envPrefix + name,
		Message: fmt.Sprintf("cannot parse %q: %v", val, err),
	})
}

func (e *envReader) str(name string, dst *string) {
	if val, ok := e.lookup(name); ok {
		*dst = val
	}
}

func (e *envReader) integer(name string, dst *int) {
	if val, ok := e.lookup(name); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			e.fail(name, val, err)
			return
		}
		*dst = i
	}
}

func (e *envReader) boolean(name string, dst *bool) {
	if val, ok := e.lookup(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			e.fail(name, val, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if val, ok := e.lookup(name); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			e.fail(name, val, err)
			return
		}
		*dst = d
	}
}

// list splits a comma-separated value, dropping empty items.
func (e *envReader) list(name string, dst *[]string) {
	if val, ok := e.lookup(name); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
}
