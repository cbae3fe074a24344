package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"mercator-hq/pivotal/pkg/eav"
)

// Reader is a read-only connection to a staging store file. Each pivot
// worker opens its own Reader so workers never contend on the writer.
type Reader struct {
	db   *sql.DB
	path string
}

var _ eav.Reader = (*Reader)(nil)

// OpenReader opens path read-only. The store must already exist; WAL mode
// lets the reader proceed while the writer holds its connection.
func OpenReader(ctx context.Context, path string, busyTimeout time.Duration) (*Reader, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, eav.NewResourceError(path, "open_reader", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eav.NewResourceError(path, "open_reader", err)
	}

	return &Reader{db: db, path: path}, nil
}

// maxQueryParams keeps each chunk query below SQLite's bound parameter
// limit (32766 since 3.32).
var maxQueryParams = 32000

// Attributes returns every attribute of entityIDs ordered by entity id and
// then insertion order, so a later write to the same key is scanned later.
// Large id lists are read in ascending sub-batches and concatenated, which
// keeps that order.
func (r *Reader) Attributes(ctx context.Context, entityIDs []int64) ([]eav.Attribute, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}

	ids := slices.Clone(entityIDs)
	slices.Sort(ids)

	var attrs []eav.Attribute
	for start := 0; start < len(ids); start += maxQueryParams {
		end := min(start+maxQueryParams, len(ids))
		batch, err := r.attributes(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, batch...)
	}
	return attrs, nil
}

func (r *Reader) attributes(ctx context.Context, ids []int64) ([]eav.Attribute, error) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		"SELECT entity_id, key, value FROM attributes WHERE entity_id IN (%s) ORDER BY entity_id, id",
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eav.NewQueryError("chunk_attributes", err)
	}
	defer rows.Close()

	return scanAttributes(rows, "chunk_attributes")
}

// Close releases the connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return eav.NewResourceError(r.path, "close_reader", err)
	}
	return nil
}
