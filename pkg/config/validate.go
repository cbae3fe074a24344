package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "export.chunk_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateIngest(&cfg.Ingest)...)
	errs = append(errs, validateExport(&cfg.Export)...)
	errs = append(errs, validateOutput(&cfg.Output, cfg.Store.Path)...)
	errs = append(errs, validateSchedule(&cfg.Schedule, &cfg.Ingest)...)
	errs = append(errs, validateDemo(&cfg.Demo)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "store.path",
			Message: "store path is required",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "store.busy_timeout",
			Message: "busy timeout must be non-negative",
		})
	}

	return errs
}

func validateIngest(cfg *IngestConfig) []FieldError {
	var errs []FieldError

	switch cfg.Format {
	case "", "csv", "jsonl":
	default:
		errs = append(errs, FieldError{
			Field:   "ingest.format",
			Message: fmt.Sprintf("unsupported format %q (expected csv or jsonl)", cfg.Format),
		})
	}

	if msg := checkDelimiter(cfg.Delimiter); msg != "" {
		errs = append(errs, FieldError{Field: "ingest.delimiter", Message: msg})
	}

	if cfg.BatchSize < 1 {
		errs = append(errs, FieldError{
			Field:   "ingest.batch_size",
			Message: "batch size must be at least 1",
		})
	}

	return errs
}

func validateExport(cfg *ExportConfig) []FieldError {
	var errs []FieldError

	if cfg.ChunkSize < 1 {
		errs = append(errs, FieldError{
			Field:   "export.chunk_size",
			Message: "chunk size must be at least 1",
		})
	}
	if cfg.Workers < 0 {
		errs = append(errs, FieldError{
			Field:   "export.workers",
			Message: "workers must be non-negative (0 means one per chunk)",
		})
	}

	for i, key := range cfg.Priority {
		if key == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("export.priority[%d]", i),
				Message: "priority key cannot be empty",
			})
		}
	}

	return errs
}

func validateOutput(cfg *OutputConfig, storePath string) []FieldError {
	var errs []FieldError

	if len(cfg.EnabledOutputs()) == 0 {
		errs = append(errs, FieldError{
			Field:   "output",
			Message: "at least one output must be enabled",
		})
	}

	if cfg.CSV.Enabled {
		if cfg.CSV.Path == "" {
			errs = append(errs, FieldError{Field: "output.csv.path", Message: "path is required"})
		}
		if msg := checkDelimiter(cfg.CSV.Delimiter); msg != "" {
			errs = append(errs, FieldError{Field: "output.csv.delimiter", Message: msg})
		}
	}

	if cfg.SQLite.Enabled {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "output.sqlite.path", Message: "path is required"})
		}
		if cfg.SQLite.Table == "" {
			errs = append(errs, FieldError{Field: "output.sqlite.table", Message: "table is required"})
		}
	}

	if cfg.Postgres.Enabled {
		if cfg.Postgres.DSN == "" {
			errs = append(errs, FieldError{Field: "output.postgres.dsn", Message: "dsn is required"})
		}
		if cfg.Postgres.Table == "" {
			errs = append(errs, FieldError{Field: "output.postgres.table", Message: "table is required"})
		}
	}

	if cfg.NDJSON.Enabled && cfg.NDJSON.Path == "" {
		errs = append(errs, FieldError{Field: "output.ndjson.path", Message: "path is required"})
	}

	// Each file sink deletes its destination on open; none may point at the
	// staging store or at another sink.
	paths := map[string]string{}
	if storePath != "" {
		paths[filepath.Clean(storePath)] = "store.path"
	}
	for _, p := range []struct {
		field   string
		enabled bool
		path    string
	}{
		{"output.csv.path", cfg.CSV.Enabled, cfg.CSV.Path},
		{"output.sqlite.path", cfg.SQLite.Enabled, cfg.SQLite.Path},
		{"output.ndjson.path", cfg.NDJSON.Enabled, cfg.NDJSON.Path},
	} {
		if !p.enabled || p.path == "" {
			continue
		}
		clean := filepath.Clean(p.path)
		if other, ok := paths[clean]; ok {
			errs = append(errs, FieldError{
				Field:   p.field,
				Message: fmt.Sprintf("path conflicts with %s", other),
			})
			continue
		}
		paths[clean] = p.field
	}

	if cfg.S3.Enabled {
		if cfg.S3.Bucket == "" {
			errs = append(errs, FieldError{Field: "output.s3.bucket", Message: "bucket is required"})
		}
		if cfg.S3.Region == "" {
			errs = append(errs, FieldError{Field: "output.s3.region", Message: "region is required"})
		}
	}

	return errs
}

func validateSchedule(cfg *ScheduleConfig, ingest *IngestConfig) []FieldError {
	var errs []FieldError

	if cfg.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Cron); err != nil {
			errs = append(errs, FieldError{
				Field:   "schedule.cron",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	if cfg.WatchInput && ingest.Path == "" {
		errs = append(errs, FieldError{
			Field:   "schedule.watch_input",
			Message: "ingest.path is required to watch the input",
		})
	}

	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{
			Field:   "schedule.debounce",
			Message: "debounce must be non-negative",
		})
	}

	return errs
}

func validateDemo(cfg *DemoConfig) []FieldError {
	var errs []FieldError

	if cfg.Entities < 1 {
		errs = append(errs, FieldError{Field: "demo.entities", Message: "must be at least 1"})
	}
	if cfg.Keys < 1 {
		errs = append(errs, FieldError{Field: "demo.keys", Message: "must be at least 1"})
	}
	if cfg.AttributesPerEntity < 0 {
		errs = append(errs, FieldError{Field: "demo.attributes_per_entity", Message: "must be non-negative"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (expected debug, info, warn or error)", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (expected json, text or console)", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "path must start with /",
			})
		}
	}

	switch cfg.Tracing.Sampler {
	case "always", "never":
	case "ratio":
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", cfg.Tracing.SampleRatio),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (expected always, never or ratio)", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.timeout",
			Message: "must be non-negative",
		})
	}

	return errs
}

// checkDelimiter returns a message if d is not a single usable rune.
func checkDelimiter(d string) string {
	if utf8.RuneCountInString(d) != 1 {
		return "delimiter must be a single character"
	}
	r, _ := utf8.DecodeRuneInString(d)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return fmt.Sprintf("delimiter %q is not allowed", d)
	}
	return ""
}

// Delimiter returns the first rune of d, or ',' when d is empty.
func Delimiter(d string) rune {
	if d == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(d)
	return r
}
