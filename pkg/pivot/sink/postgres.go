package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercator-hq/pivotal/pkg/eav"
)

// PostgresConfig configures the Postgres table sink.
type PostgresConfig struct {
	// DSN is the pgx connection string.
	DSN string

	// Table is the target table, optionally schema qualified
	// ("public.wide_rows"). It is dropped and recreated on every export.
	// Default: "wide_rows"
	Table string
}

// PostgresTable writes rows into a freshly created Postgres table using COPY.
type PostgresTable struct {
	pool    *pgxpool.Pool
	table   pgx.Identifier
	columns []string
	logger  *slog.Logger
}

// NewPostgresTable connects to cfg.DSN.
func NewPostgresTable(ctx context.Context, cfg PostgresConfig) (*PostgresTable, error) {
	if cfg.DSN == "" {
		return nil, NewSinkError("postgres", "open", errors.New("dsn cannot be empty"))
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, NewSinkError("postgres", "open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, NewSinkError("postgres", "open", err)
	}

	return &PostgresTable{
		pool:   pool,
		table:  splitFQN(cfg.Table),
		logger: slog.Default().With("component", "sink.postgres", "table", cfg.Table),
	}, nil
}

// Name returns "postgres".
func (s *PostgresTable) Name() string { return "postgres" }

// WriteHeader drops the target table if present and recreates it with one
// TEXT column per export column.
func (s *PostgresTable) WriteHeader(ctx context.Context, columns []string) error {
	if len(columns) == 0 {
		return NewSinkError("postgres", "write_header", ErrNoColumns)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgx.Identifier{c}.Sanitize() + " TEXT"
	}

	table := s.table.Sanitize()
	ddl := []string{
		"DROP TABLE IF EXISTS " + table,
		fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", ")),
	}
	for _, q := range ddl {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return NewSinkError("postgres", "write_header", err)
		}
	}

	s.columns = columns
	s.logger.Debug("table created", "columns", len(columns))
	return nil
}

// WriteBatch copies rows into the table. COPY is all or nothing: on failure
// no row of the batch is stored.
func (s *PostgresTable) WriteBatch(ctx context.Context, rows []eav.WideRow) (int, error) {
	if s.columns == nil {
		return 0, NewSinkError("postgres", "write_batch", ErrHeaderNotWritten)
	}

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		if err := checkWidth(row, len(s.columns)); err != nil {
			return 0, NewSinkError("postgres", "write_batch", err)
		}
		v := make([]any, len(row))
		for i, f := range row {
			v[i] = f
		}
		values = append(values, v)
	}

	n, err := s.pool.CopyFrom(ctx, s.table, s.columns, pgx.CopyFromRows(values))
	if err != nil {
		return 0, NewSinkError("postgres", "write_batch", err)
	}
	return int(n), nil
}

// Close releases the connection pool.
func (s *PostgresTable) Close() error {
	s.pool.Close()
	return nil
}

// splitFQN converts "schema.table" into a pgx.Identifier.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
