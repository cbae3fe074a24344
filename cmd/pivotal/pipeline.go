package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/pivotal/pkg/cli"
	"mercator-hq/pivotal/pkg/config"
	"mercator-hq/pivotal/pkg/eav"
	"mercator-hq/pivotal/pkg/eav/storage"
	"mercator-hq/pivotal/pkg/ingest"
	"mercator-hq/pivotal/pkg/pivot"
	"mercator-hq/pivotal/pkg/pivot/sink"
	"mercator-hq/pivotal/pkg/publish"
	"mercator-hq/pivotal/pkg/telemetry/metrics"
)

// pipeline runs one ingest followed by one export per enabled output.
type pipeline struct {
	cfg       *config.Config
	collector *metrics.Collector
	progress  io.Writer
	logger    *slog.Logger

	// newPublisher is swapped in tests.
	newPublisher func(ctx context.Context, cfg *config.S3Config, opts ...publish.Option) (*publish.Publisher, error)
}

func newPipeline(cfg *config.Config, collector *metrics.Collector, progress io.Writer) *pipeline {
	return &pipeline{
		cfg:          cfg,
		collector:    collector,
		progress:     progress,
		logger:       slog.Default().With("component", "pipeline"),
		newPublisher: publish.NewFromConfig,
	}
}

// runFile ingests the configured input file and exports it.
func (p *pipeline) runFile(ctx context.Context) (*cli.RunSummary, error) {
	dec, closer, format, err := p.openInput()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return p.run(ctx, dec, format)
}

// openInput opens the configured input file and returns its decoder and
// detected format.
func (p *pipeline) openInput() (ingest.Decoder, io.Closer, string, error) {
	in := p.cfg.Ingest
	if in.Path == "" {
		return nil, nil, "", cli.NewConfigError("ingest.path", "an input file is required (--input or ingest.path)")
	}

	dec, closer, err := ingest.OpenFile(in.Path, ingest.Options{
		Format:       in.Format,
		EntityColumn: in.EntityColumn,
		KeyColumn:    in.KeyColumn,
		ValueColumn:  in.ValueColumn,
		Comma:        config.Delimiter(in.Delimiter),
	})
	if err != nil {
		return nil, nil, "", err
	}
	return dec, closer, ingest.DetectFormat(in.Path, in.Format), nil
}

// stage loads dec into a fresh staging store. The caller closes the store.
func (p *pipeline) stage(ctx context.Context, dec ingest.Decoder, format string) (*storage.SQLiteStore, ingest.Stats, error) {
	if err := ensureDir(p.cfg.Store.Path); err != nil {
		return nil, ingest.Stats{}, err
	}
	store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
		Path:        p.cfg.Store.Path,
		BusyTimeout: p.cfg.Store.BusyTimeout,
	})
	if err != nil {
		return nil, ingest.Stats{}, err
	}

	loader := ingest.NewLoader(store,
		ingest.WithBatchSize(p.cfg.Ingest.BatchSize),
		ingest.WithAttachHook(p.collector.RecordAttach),
	)
	stats, err := loader.Load(ctx, dec)
	p.collector.RecordIngest(format, stats.Entities, stats.Duration)
	if err != nil {
		return store, stats, fmt.Errorf("ingest: %w", err)
	}
	return store, stats, nil
}

// run loads dec into a fresh staging store and exports it to every
// enabled output. The summary is returned even when err is non-nil.
func (p *pipeline) run(ctx context.Context, dec ingest.Decoder, format string) (*cli.RunSummary, error) {
	summary := &cli.RunSummary{}

	store, stats, err := p.stage(ctx, dec, format)
	if store != nil {
		defer store.Close()
		summary.Ingest = &stats
	}
	if err != nil {
		return summary, err
	}

	var errs []error
	var files []string
	for _, name := range p.cfg.Output.EnabledOutputs() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		report, path, err := p.export(ctx, store, name)
		if report != nil {
			summary.Exports = append(summary.Exports, report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("export %s: %w", name, err))
			continue
		}
		if path != "" {
			files = append(files, path)
		}
	}

	if p.cfg.Output.S3.Enabled && len(files) > 0 && ctx.Err() == nil {
		uploads, err := p.publish(ctx, files)
		summary.Uploads = uploads
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return summary, err
	}
	if !summary.OK() {
		return summary, cli.ErrDegraded
	}
	return summary, nil
}

// list returns every staged entity with its raw attributes.
func list(ctx context.Context, store *storage.SQLiteStore) ([]cli.EntityListing, error) {
	entities, err := store.Entities(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]cli.EntityListing, 0, len(entities))
	for _, e := range entities {
		attrs, err := store.Attributes(ctx, e)
		if err != nil {
			return nil, err
		}
		pairs := make([]eav.Pair, len(attrs))
		for i, a := range attrs {
			pairs[i] = eav.Pair{Key: a.Key, Value: a.Value}
		}
		listings = append(listings, cli.EntityListing{ID: e.ID, Entity: e.Value, Attributes: pairs})
	}
	return listings, nil
}

// fileSink is implemented by sinks that write a local file.
type fileSink interface {
	Path() string
}

// export runs one export into the named output. It returns the output
// file for file sinks.
func (p *pipeline) export(ctx context.Context, store *storage.SQLiteStore, name string) (*pivot.Report, string, error) {
	out, err := p.openSink(ctx, name)
	if err != nil {
		return nil, "", err
	}

	opts := []pivot.Option{pivot.WithObserver(p.collector)}
	if p.progress != nil {
		opts = append(opts, pivot.WithStateHook(cli.ExportProgress(cli.NewProgressReporter(p.progress, "chunks"))))
	}

	exporter := pivot.NewExporter(store, pivot.Config{
		ChunkSize: p.cfg.Export.ChunkSize,
		Workers:   p.cfg.Export.Workers,
		Priority:  p.cfg.Export.Priority,
	}, opts...)

	report, err := exporter.Export(ctx, out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close: %w", cerr)
	}
	if err != nil {
		return report, "", err
	}

	var path string
	if f, ok := out.(fileSink); ok {
		path = f.Path()
	}
	return report, path, nil
}

func (p *pipeline) openSink(ctx context.Context, name string) (pivot.Sink, error) {
	out := p.cfg.Output
	switch name {
	case "csv":
		return sink.NewCSV(sink.CSVConfig{
			Path:      out.CSV.Path,
			Delimiter: config.Delimiter(out.CSV.Delimiter),
		})
	case "sqlite":
		if err := ensureDir(out.SQLite.Path); err != nil {
			return nil, err
		}
		return sink.NewSQLiteTable(sink.TableConfig{
			Path:        out.SQLite.Path,
			Table:       out.SQLite.Table,
			BusyTimeout: p.cfg.Store.BusyTimeout,
		})
	case "postgres":
		return sink.NewPostgresTable(ctx, sink.PostgresConfig{
			DSN:   out.Postgres.DSN,
			Table: out.Postgres.Table,
		})
	case "ndjson":
		return sink.NewNDJSON(sink.NDJSONConfig{Path: out.NDJSON.Path})
	default:
		return nil, fmt.Errorf("unknown output %q", name)
	}
}

func (p *pipeline) publish(ctx context.Context, files []string) ([]publish.Upload, error) {
	start := time.Now()
	pub, err := p.newPublisher(ctx, &p.cfg.Output.S3, publish.WithUploadHook(p.collector.RecordPublish))
	if err != nil {
		return nil, err
	}
	uploads, err := pub.PublishAll(ctx, files)
	p.logger.Info("publish complete",
		"bucket", pub.Bucket(),
		"files", len(files),
		"uploaded", len(uploads),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return uploads, err
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
