package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"mercator-hq/pivotal/pkg/eav"
	"mercator-hq/pivotal/pkg/eav/storage"
)

// DefaultBatchSize is the number of pairs attached per transaction.
const DefaultBatchSize = 500

// Stats summarizes one load.
type Stats struct {
	Records  int           `json:"records"`
	Selects  int           `json:"selects"`
	Attached int           `json:"attached"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Entities int64         `json:"entities"`
	Duration time.Duration `json:"duration"`
}

// AttachHook receives the result of every batch attach.
type AttachHook func(eav.AttachResult)

// Loader feeds decoded records into a store through a Cursor. Consecutive
// records of the same entity share one selection; their pairs are attached
// in batches.
type Loader struct {
	store     eav.Store
	batchSize int
	onAttach  AttachHook
	logger    *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithBatchSize sets the maximum pairs per AttachBatch call.
func WithBatchSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithAttachHook calls fn after every batch.
func WithAttachHook(fn AttachHook) LoaderOption {
	return func(l *Loader) {
		l.onAttach = fn
	}
}

// NewLoader creates a Loader writing to store.
func NewLoader(store eav.Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "ingest.loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load drains dec into the store. Records with an empty entity are
// skipped. Pairs the store refuses are counted in Stats.Failed and do not
// stop the load; a failed selection or a decoder error does.
func (l *Loader) Load(ctx context.Context, dec Decoder) (Stats, error) {
	start := time.Now()
	cursor := storage.NewCursor(l.store)

	var (
		stats   Stats
		current string
		batch   = make([]eav.Pair, 0, l.batchSize)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		result, err := cursor.AttachBatch(ctx, batch)
		stats.Attached += result.Attached
		stats.Failed += len(result.Failed)
		if l.onAttach != nil {
			l.onAttach(result)
		}
		batch = batch[:0]
		if err != nil {
			return fmt.Errorf("attach batch for %q: %w", current, err)
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Records++

		if rec.Entity == "" {
			stats.Skipped++
			continue
		}

		if _, ok := cursor.Current(); !ok || rec.Entity != current {
			if err := flush(); err != nil {
				return stats, err
			}
			if _, err := cursor.Select(ctx, rec.Entity); err != nil {
				return stats, fmt.Errorf("select entity %q: %w", rec.Entity, err)
			}
			current = rec.Entity
			stats.Selects++
		}

		batch = append(batch, eav.Pair{Key: rec.Key, Value: rec.Value})
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	if s, ok := dec.(interface{ Skipped() int }); ok {
		stats.Skipped += s.Skipped()
	}

	count, err := l.store.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.Entities = count
	stats.Duration = time.Since(start)

	l.logger.Info("ingest complete",
		"records", stats.Records,
		"entities", stats.Entities,
		"attached", stats.Attached,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration_ms", stats.Duration.Milliseconds(),
	)

	return stats, nil
}
