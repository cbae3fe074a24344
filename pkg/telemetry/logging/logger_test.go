package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/pivotal/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid JSON config", config: Config{Level: "info", Format: "json"}},
		{name: "valid text config", config: Config{Level: "debug", Format: "text"}},
		{name: "valid console config", config: Config{Level: "WARN", Format: "console", RedactSecrets: true}},
		{name: "empty config", config: Config{}},
		{name: "invalid log level", config: Config{Level: "invalid"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Slog().Info("hidden")
	logger.Slog().Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message should be logged")
	}
	if logger.Level() != slog.LevelWarn {
		t.Errorf("Level() = %v, want warn", logger.Level())
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := WithRunID(context.Background(), "run-123")
	ctx = WithSink(ctx, "csv")
	logger.WithContext(ctx).Slog().Info("export complete", "rows", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["run_id"] != "run-123" || entry["sink"] != "csv" {
		t.Errorf("expected run fields in %v", entry)
	}
	if entry["rows"] != float64(2) {
		t.Errorf("expected rows=2 in %v", entry)
	}
}

func TestLogger_RedactSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", RedactSecrets: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Slog().With("dsn", "postgres://app:hunter2@db:5432/x").Info("connecting",
		"password", "hunter2",
		"target", "postgres://app:hunter2@db:5432/x",
	)

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("secret leaked into log: %s", out)
	}
	if !strings.Contains(out, "postgres://app:***@db:5432/x") {
		t.Errorf("expected masked DSN in %s", out)
	}
}

func TestLogger_CustomPatternOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{
		Format: "json",
		Writer: &buf,
		RedactPatterns: []config.RedactPattern{
			{Name: "sku", Pattern: `SKU-\d+`, Replacement: "SKU-?"},
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Slog().Info("entity", "value", "SKU-12345")
	if !strings.Contains(buf.String(), "SKU-?") {
		t.Errorf("expected custom pattern applied: %s", buf.String())
	}
}

func TestLogger_SetDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger, err := New(Config{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.SetDefault()

	slog.Default().With("component", "test").Info("hello")
	if !strings.Contains(buf.String(), "component=test") {
		t.Errorf("expected default logger to write through: %q", buf.String())
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LoggingConfig{Level: "debug", Format: "text", AddSource: true, RedactSecrets: true})
	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.AddSource || !cfg.RedactSecrets {
		t.Errorf("unexpected conversion: %+v", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    LogFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"TEXT", FormatText, false},
		{"console", FormatConsole, false},
		{"", FormatJSON, false},
		{"yaml", FormatJSON, true},
	}

	for _, tt := range tests {
		got, err := parseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
