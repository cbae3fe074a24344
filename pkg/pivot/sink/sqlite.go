package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/pivotal/pkg/eav"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "wide_rows"

// TableConfig configures the SQLite table sink.
type TableConfig struct {
	// Path is the destination database file. Any existing file is replaced.
	Path string

	// Table is the name of the table to create. Default: "wide_rows"
	Table string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteTable writes rows into a fresh table of a new SQLite database, one
// TEXT column per export column.
type SQLiteTable struct {
	db      *sql.DB
	path    string
	table   string
	insert  *sql.Stmt
	columns int
	logger  *slog.Logger
}

// NewSQLiteTable removes any database at cfg.Path and opens a fresh one.
// The table itself is created by WriteHeader.
func NewSQLiteTable(cfg TableConfig) (*SQLiteTable, error) {
	if cfg.Path == "" {
		return nil, NewSinkError("sqlite", "open", os.ErrInvalid)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if err := removeExisting(cfg.Path, cfg.Path+"-wal", cfg.Path+"-shm", cfg.Path+"-journal"); err != nil {
		return nil, NewSinkError("sqlite", "open", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(OFF)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, NewSinkError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewSinkError("sqlite", "open", err)
	}

	return &SQLiteTable{
		db:     db,
		path:   cfg.Path,
		table:  cfg.Table,
		logger: slog.Default().With("component", "sink.sqlite", "table", cfg.Table),
	}, nil
}

// Name returns "sqlite".
func (s *SQLiteTable) Name() string { return "sqlite" }

// Path returns the destination database path.
func (s *SQLiteTable) Path() string { return s.path }

// WriteHeader creates the table and prepares the insert statement. An empty
// column list fails with ErrNoColumns.
func (s *SQLiteTable) WriteHeader(ctx context.Context, columns []string) error {
	if len(columns) == 0 {
		return NewSinkError("sqlite", "write_header", ErrNoColumns)
	}

	if err := checkFoldedNames(columns); err != nil {
		return NewSinkError("sqlite", "write_header", err)
	}

	defs := make([]string, len(columns))
	names := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		names[i] = quoteIdent(c)
		defs[i] = names[i] + " TEXT"
		params[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(s.table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return NewSinkError("sqlite", "write_header", err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.table), strings.Join(names, ", "), strings.Join(params, ", "))
	stmt, err := s.db.PrepareContext(ctx, insert)
	if err != nil {
		return NewSinkError("sqlite", "write_header", err)
	}

	s.insert = stmt
	s.columns = len(columns)
	s.logger.Debug("table created", "columns", len(columns))
	return nil
}

// WriteBatch inserts rows in one transaction. A row that fails to insert is
// logged and skipped; the batch still commits. The returned error, if any,
// joins every row failure.
func (s *SQLiteTable) WriteBatch(ctx context.Context, rows []eav.WideRow) (int, error) {
	if s.insert == nil {
		return 0, NewSinkError("sqlite", "write_batch", ErrHeaderNotWritten)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewSinkError("sqlite", "write_batch", err)
	}
	stmt := tx.StmtContext(ctx, s.insert)

	var (
		written int
		errs    []error
	)
	args := make([]any, s.columns)
	for _, row := range rows {
		if err := checkWidth(row, s.columns); err != nil {
			errs = append(errs, err)
			continue
		}
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			s.logger.Error("row insert failed", "error", err)
			errs = append(errs, err)
			continue
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, NewSinkError("sqlite", "write_batch", err)
	}

	if len(errs) > 0 {
		return written, NewSinkError("sqlite", "write_batch", errors.Join(errs...))
	}
	return written, nil
}

// Close releases the statement and the database.
func (s *SQLiteTable) Close() error {
	if s.insert != nil {
		s.insert.Close()
	}
	if err := s.db.Close(); err != nil {
		return NewSinkError("sqlite", "close", err)
	}
	return nil
}

// quoteIdent quotes name as an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// checkFoldedNames reports the first pair of columns SQLite would treat as
// the same name.
func checkFoldedNames(columns []string) error {
	seen := make(map[string]string, len(columns))
	for _, c := range columns {
		folded := foldASCII(c)
		if prev, ok := seen[folded]; ok {
			return fmt.Errorf("%w: %q and %q", ErrColumnCollision, prev, c)
		}
		seen[folded] = c
	}
	return nil
}

// foldASCII lowercases A-Z only, matching SQLite's identifier comparison.
func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
