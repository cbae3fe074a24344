package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/pivotal/pkg/config"
)

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "test"); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if tracer.Enabled() {
		t.Error("expected tracer to be disabled")
	}

	ctx, span := tracer.Start(context.Background(), "pivot.export")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("expected noop span")
	}
	if TraceID(ctx) != "" {
		t.Errorf("expected empty trace id, got %q", TraceID(ctx))
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}

func TestNew_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tracer, err := New(&config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
		Timeout:     time.Second,
		ServiceName: "pivotal-test",
	}, "1.0.0")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if !tracer.Enabled() {
		t.Error("expected tracer to be enabled")
	}

	ctx, span := tracer.Start(context.Background(), "pivot.export")
	if TraceID(ctx) == "" {
		t.Error("expected a trace id from an enabled tracer")
	}
	span.End()

	if otel.GetTracerProvider() != tracer.provider {
		t.Error("expected global provider to be installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = tracer.Shutdown(ctx)
}

func TestNew_InvalidSampler(t *testing.T) {
	_, err := New(&config.TracingConfig{Enabled: true, Sampler: "sometimes", Endpoint: "x:1"}, "test")
	if err == nil {
		t.Error("expected error for unknown sampler")
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{name: "always", strategy: SamplerAlways},
		{name: "never", strategy: SamplerNever},
		{name: "ratio 0%", strategy: SamplerRatio, ratio: 0},
		{name: "ratio 50%", strategy: SamplerRatio, ratio: 0.5},
		{name: "ratio 100%", strategy: SamplerRatio, ratio: 1},
		{name: "ratio negative", strategy: SamplerRatio, ratio: -0.1, wantErr: true},
		{name: "ratio above one", strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{name: "unknown", strategy: "unknown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sampler == nil {
				t.Error("expected non-nil sampler")
			}
		})
	}
}

func TestAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer(InstrumentationName)

	ctx, export := tracer.Start(context.Background(), "pivot.export")
	SetExportAttributes(export, "run-1", "csv")

	_, chunk := tracer.Start(ctx, "pivot.chunk", ChunkAttributes(2, 50))
	SetStatus(chunk, errors.New("reader closed"))
	chunk.End()

	SetExportResult(export, 3, 100, 2, 50, 1, 0)
	SetStatus(export, nil)
	export.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	chunkSpan, exportSpan := spans[0], spans[1]
	if chunkSpan.Parent().SpanID() != exportSpan.SpanContext().SpanID() {
		t.Error("expected chunk span to be a child of the export span")
	}
	if chunkSpan.Status().Code != codes.Error {
		t.Errorf("expected chunk status Error, got %v", chunkSpan.Status().Code)
	}
	if exportSpan.Status().Code != codes.Ok {
		t.Errorf("expected export status Ok, got %v", exportSpan.Status().Code)
	}

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range exportSpan.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrRunID].AsString() != "run-1" || attrs[AttrSink].AsString() != "csv" {
		t.Errorf("unexpected export attributes: %v", attrs)
	}
	if attrs[AttrRows].AsInt64() != 50 || attrs[AttrFailedChunks].AsInt64() != 1 {
		t.Errorf("unexpected result attributes: %v", attrs)
	}
}
