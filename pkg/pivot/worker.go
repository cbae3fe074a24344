package pivot

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/pivotal/pkg/eav"
	"mercator-hq/pivotal/pkg/telemetry/tracing"
)

// ReaderOpener opens a dedicated read-only view of the store.
type ReaderOpener interface {
	OpenReader(ctx context.Context) (eav.Reader, error)
}

// ReaderOpenerFunc adapts a function to ReaderOpener.
type ReaderOpenerFunc func(ctx context.Context) (eav.Reader, error)

// OpenReader calls f(ctx).
func (f ReaderOpenerFunc) OpenReader(ctx context.Context) (eav.Reader, error) {
	return f(ctx)
}

// ChunkResult is the outcome of pivoting one chunk.
type ChunkResult struct {
	Chunk    Chunk
	Rows     []eav.WideRow
	Err      error
	Duration time.Duration
}

// PivotChunk pivots the entities of chunk into wide rows over columns.
//
// The worker opens its own reader, so any number of workers can run next
// to each other and next to the writer. A failure to open the reader or to
// read the chunk yields an empty batch with Err set. Other chunks are not
// affected.
func PivotChunk(ctx context.Context, chunk Chunk, columns []string, opener ReaderOpener) ChunkResult {
	start := time.Now()
	logger := slog.Default().With("component", "pivot.worker", "chunk", chunk.Index)

	result := ChunkResult{Chunk: chunk}

	ctx, span := tracer.Start(ctx, "pivot.chunk", tracing.ChunkAttributes(chunk.Index, len(chunk.IDs)))
	defer func() {
		tracing.SetStatus(span, result.Err)
		span.End()
	}()

	reader, err := opener.OpenReader(ctx)
	if err != nil {
		logger.Error("failed to open reader", "error", err)
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			logger.Warn("failed to close reader", "error", cerr)
		}
	}()

	attrs, err := reader.Attributes(ctx, chunk.IDs)
	if err != nil {
		logger.Error("failed to read chunk", "ids", len(chunk.IDs), "error", err)
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	result.Rows = Pivot(attrs, columns)
	result.Duration = time.Since(start)

	logger.Debug("chunk pivoted",
		"entities", len(chunk.IDs),
		"attributes", len(attrs),
		"rows", len(result.Rows),
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result
}

// Pivot groups attrs by entity and projects each group onto columns.
//
// Entities appear in order of their first attribute. When a key repeats for
// one entity the later attribute wins. Keys not in columns are dropped and
// columns without a value are "". Entities with no attributes produce no row.
func Pivot(attrs []eav.Attribute, columns []string) []eav.WideRow {
	if len(attrs) == 0 {
		return nil
	}

	position := make(map[string]int, len(columns))
	for i, c := range columns {
		position[c] = i
	}

	var (
		rows  []eav.WideRow
		index = make(map[int64]int)
	)
	for _, a := range attrs {
		i, ok := index[a.EntityID]
		if !ok {
			i = len(rows)
			index[a.EntityID] = i
			rows = append(rows, make(eav.WideRow, len(columns)))
		}
		if p, ok := position[a.Key]; ok {
			rows[i][p] = a.Value
		}
	}

	return rows
}
