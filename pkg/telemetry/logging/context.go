package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for export run IDs.
	RunIDKey contextKey = "run_id"

	// SinkKey is the context key for the sink name of a run.
	SinkKey contextKey = "sink"

	// TriggerKey is the context key for what started a run
	// ("cli", "cron", "watch").
	TriggerKey contextKey = "trigger"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSink adds a sink name to the context.
func WithSink(ctx context.Context, sink string) context.Context {
	return context.WithValue(ctx, SinkKey, sink)
}

// GetSink retrieves the sink name from the context.
func GetSink(ctx context.Context) string {
	if sink, ok := ctx.Value(SinkKey).(string); ok {
		return sink
	}
	return ""
}

// WithTrigger adds the run trigger to the context.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, TriggerKey, trigger)
}

// GetTrigger retrieves the run trigger from the context.
func GetTrigger(ctx context.Context) string {
	if trigger, ok := ctx.Value(TriggerKey).(string); ok {
		return trigger
	}
	return ""
}

// ContextFields returns the log fields stored in ctx as key-value pairs
// suitable for slog.Logger.With.
func ContextFields(ctx context.Context) []any {
	var fields []any

	if id := GetRunID(ctx); id != "" {
		fields = append(fields, "run_id", id)
	}
	if sink := GetSink(ctx); sink != "" {
		fields = append(fields, "sink", sink)
	}
	if trigger := GetTrigger(ctx); trigger != "" {
		fields = append(fields, "trigger", trigger)
	}

	return fields
}

// FromContext returns base extended with the fields stored in ctx.
// A nil base uses slog.Default().
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
