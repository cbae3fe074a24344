package pivot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"mercator-hq/pivotal/pkg/telemetry/logging"
	"mercator-hq/pivotal/pkg/telemetry/tracing"
)

var tracer = otel.Tracer(tracing.InstrumentationName + "/pivot")

// Source is the store contract the exporter reads from. eav.Store
// satisfies it.
type Source interface {
	KeySource
	ReaderOpener

	// ListIDs returns every entity id to export.
	ListIDs(ctx context.Context) ([]int64, error)
}

// Config controls an export run.
type Config struct {
	// ChunkSize is the number of entities per worker. Must be positive.
	ChunkSize int

	// Workers bounds the number of chunks pivoted at once.
	// Zero or negative starts one worker per chunk.
	Workers int

	// Priority lists columns that come first in the header.
	Priority []string
}

// DefaultConfig returns the default export configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 1000,
		Workers:   4,
	}
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithObserver reports export events to o.
func WithObserver(o Observer) Option {
	return func(e *Exporter) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithStateHook calls fn on every state transition.
func WithStateHook(fn StateChangeFunc) Option {
	return func(e *Exporter) {
		e.onStateChange = fn
	}
}

// Exporter pivots the contents of a Source into wide rows and streams them
// to a Sink.
//
// An Exporter may be reused for several runs, but runs must not overlap.
type Exporter struct {
	source        Source
	config        Config
	observer      Observer
	onStateChange StateChangeFunc
	logger        *slog.Logger

	mu      sync.RWMutex
	state   State
	pending int
}

// NewExporter creates an Exporter over source.
func NewExporter(source Source, config Config, opts ...Option) *Exporter {
	e := &Exporter{
		source:   source,
		config:   config,
		observer: nopObserver{},
		logger:   slog.Default().With("component", "pivot.exporter"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state of the exporter.
func (e *Exporter) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Pending returns the number of chunks not yet drained.
func (e *Exporter) Pending() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pending
}

func (e *Exporter) setState(state State, pending int) {
	e.mu.Lock()
	e.state = state
	e.pending = pending
	e.mu.Unlock()

	e.observer.StateChanged(state)
	if e.onStateChange != nil {
		e.onStateChange(state, pending)
	}
}

// Export runs one export into sink.
//
// Column discovery, id listing and the sink header are upstream steps: a
// failure there is returned before any worker starts. Failed chunks and
// failed batches do not stop the run; they are counted in the Report.
// Cancelling ctx stops launching chunks and stops writing to the sink.
//
// The Report is returned even when err is non-nil. Export does not close
// the sink.
func (e *Exporter) Export(ctx context.Context, sink Sink) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Sink:      sinkName(sink),
		StartedAt: time.Now(),
	}

	ctx = logging.WithRunID(ctx, report.RunID)
	logger := e.logger.With(logging.ContextFields(ctx)...).With("sink", report.Sink)

	ctx, span := tracer.Start(ctx, "pivot.export")
	defer span.End()
	tracing.SetExportAttributes(span, report.RunID, report.Sink)

	e.setState(StateIdle, 0)
	err := e.run(ctx, sink, report, logger)
	report.Duration = time.Since(report.StartedAt)

	tracing.SetExportResult(span, len(report.Columns), report.Entities, report.Chunks,
		report.RowsWritten, len(report.Failed), report.SinkFailures)
	tracing.SetStatus(span, err)

	if err != nil {
		e.setState(StateFailed, 0)
		logger.Error("export failed",
			"error", err,
			"duration_ms", report.Duration.Milliseconds(),
		)
	} else {
		logger.Info("export complete",
			"columns", len(report.Columns),
			"entities", report.Entities,
			"chunks", report.Chunks,
			"rows", report.RowsWritten,
			"failed_chunks", len(report.Failed),
			"sink_failures", report.SinkFailures,
			"duration_ms", report.Duration.Milliseconds(),
		)
	}

	e.observer.ExportCompleted(report, err)
	return report, err
}

func (e *Exporter) run(ctx context.Context, sink Sink, report *Report, logger *slog.Logger) error {
	columns, err := DiscoverColumns(ctx, e.source, e.config.Priority)
	if err != nil {
		return err
	}
	report.Columns = columns
	e.setState(StateColumnsDiscovered, 0)

	ids, err := e.source.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list entity ids: %w", err)
	}
	report.Entities = len(ids)

	chunks, err := Partition(ids, e.config.ChunkSize)
	if err != nil {
		return err
	}
	report.Chunks = len(chunks)

	if err := sink.WriteHeader(ctx, columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	logger.Debug("launching workers",
		"chunks", len(chunks),
		"chunk_size", e.config.ChunkSize,
		"workers", e.config.Workers,
	)
	e.setState(StateWorkersLaunched, len(chunks))

	results := e.launch(ctx, chunks, columns)

	pending := len(chunks)
	for res := range results {
		pending--

		if res.Err != nil {
			report.Failed = append(report.Failed, ChunkFailure{
				Index: res.Chunk.Index,
				IDs:   res.Chunk.IDs,
				Error: res.Err.Error(),
			})
		}
		e.observer.ChunkCompleted(res.Chunk.Index, len(res.Rows), res.Duration, res.Err)

		if ctx.Err() == nil && len(res.Rows) > 0 {
			n, err := sink.WriteBatch(ctx, res.Rows)
			report.RowsWritten += n
			e.observer.RowsWritten(report.Sink, n)
			if err != nil {
				report.SinkFailures++
				logger.Error("batch write failed",
					"chunk", res.Chunk.Index,
					"rows", len(res.Rows),
					"written", n,
					"error", err,
				)
			}
		}

		e.setState(StateDraining, pending)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("export cancelled: %w", err)
	}

	e.setState(StateComplete, 0)
	return nil
}

// launch pivots chunks on a bounded set of goroutines. The returned channel
// yields one result per launched chunk in completion order and is closed
// once every worker has finished.
func (e *Exporter) launch(ctx context.Context, chunks []Chunk, columns []string) <-chan ChunkResult {
	results := make(chan ChunkResult, len(chunks))

	var g errgroup.Group
	if e.config.Workers > 0 {
		g.SetLimit(e.config.Workers)
	}

	go func() {
		defer close(results)
		for _, chunk := range chunks {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results <- PivotChunk(ctx, chunk, columns, e.source)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return results
}
