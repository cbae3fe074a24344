package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"mercator-hq/pivotal/pkg/eav"
)

// SQLiteConfig contains configuration for the SQLite staging store.
type SQLiteConfig struct {
	// Path is the database file path. Any existing file is removed on open.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/staging.db",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStore implements eav.Store on a disposable SQLite file.
//
// The file is opened in WAL mode with synchronous writes disabled and
// temporary storage kept in memory. A crash can corrupt it, which is
// acceptable because the file is recreated on every open.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

var _ eav.Store = (*SQLiteStore)(nil)

// NewSQLiteStore removes any existing store file at config.Path, creates a
// fresh one and applies the schema. Failures are returned as
// *eav.ResourceError or *eav.QueryError.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, eav.NewResourceError("", "open", errors.New("store path cannot be empty"))
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "eav.storage.sqlite")

	if err := removeStoreFiles(config.Path, logger); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=OFF&_foreign_keys=on&_busy_timeout=%d",
		config.Path, config.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, eav.NewResourceError(config.Path, "open", err)
	}

	// One writer; readers get their own connections through OpenReader.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eav.NewResourceError(config.Path, "ping", err)
	}

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("staging store ready",
		"path", config.Path,
		"busy_timeout_ms", config.BusyTimeout.Milliseconds(),
	)

	return s, nil
}

// initialize applies pragmas and creates the schema.
func (s *SQLiteStore) initialize() error {
	pragmas := []string{
		"PRAGMA temp_store = MEMORY",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = OFF",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return eav.NewQueryError("pragma", fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return eav.NewQueryError("create_schema", err)
	}
	s.logger.Debug("schema created")

	return nil
}

// removeStoreFiles deletes the store file and its WAL companions.
func removeStoreFiles(path string, logger *slog.Logger) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		err := os.Remove(p)
		switch {
		case err == nil:
			logger.Warn("removed existing store file", "path", p)
		case errors.Is(err, os.ErrNotExist):
		default:
			return eav.NewResourceError(p, "remove", err)
		}
	}
	return nil
}

// Path returns the store file path.
func (s *SQLiteStore) Path() string {
	return s.config.Path
}

// SelectOrCreate inserts value into the entity table. When value already
// exists the uniqueness violation is absorbed and the existing id returned,
// so repeated calls never create a second row.
func (s *SQLiteStore) SelectOrCreate(ctx context.Context, value string) (eav.Entity, error) {
	res, err := s.db.ExecContext(ctx, insertEntitySQL, value)
	if err == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return eav.Entity{}, eav.NewQueryError("select_or_create", err)
		}
		return eav.Entity{ID: id, Value: value}, nil
	}

	if !isUniqueViolation(err) {
		return eav.Entity{}, eav.NewQueryError("select_or_create", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, selectEntitySQL, value).Scan(&id); err != nil {
		s.logger.Error("failed to resolve existing entity", "value", value, "error", err)
		return eav.Entity{}, eav.NewQueryError("select_or_create", err)
	}

	return eav.Entity{ID: id, Value: value}, nil
}

// Attach appends one attribute to entity. A zero entity handle is refused
// with a *eav.PreconditionError and nothing is written.
func (s *SQLiteStore) Attach(ctx context.Context, entity eav.Entity, key, value string) error {
	if !entity.Valid() {
		return eav.NewPreconditionError("attach", eav.ErrNoCurrentEntity)
	}

	if _, err := s.db.ExecContext(ctx, insertAttributeSQL, key, value, entity.ID); err != nil {
		return eav.NewQueryError("attach", err)
	}
	return nil
}

// AttachBatch appends pairs to entity in one transaction. A pair that fails
// is logged and reported in the result; it does not stop the batch.
// Only the precondition and statement preparation are returned as errors.
func (s *SQLiteStore) AttachBatch(ctx context.Context, entity eav.Entity, pairs []eav.Pair) (eav.AttachResult, error) {
	var result eav.AttachResult

	if !entity.Valid() {
		return result, eav.NewPreconditionError("attach_batch", eav.ErrNoCurrentEntity)
	}
	if len(pairs) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, eav.NewQueryError("attach_batch", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertAttributeSQL)
	if err != nil {
		_ = tx.Rollback()
		s.logger.Error("failed to prepare attribute insert", "error", err)
		return result, eav.NewQueryError("attach_batch", err)
	}
	defer stmt.Close()

	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx, p.Key, p.Value, entity.ID); err != nil {
			s.logger.Error("attribute skipped",
				"entity_id", entity.ID,
				"key", p.Key,
				"error", err,
			)
			result.Failed = append(result.Failed, eav.FailedPair{Key: p.Key, Error: err.Error()})
			continue
		}
		result.Attached++
	}

	if err := tx.Commit(); err != nil {
		// Nothing from this batch survived the failed commit.
		failed := make([]eav.FailedPair, 0, len(pairs))
		for _, p := range pairs {
			failed = append(failed, eav.FailedPair{Key: p.Key, Error: err.Error()})
		}
		return eav.AttachResult{Failed: failed}, eav.NewQueryError("attach_batch", err)
	}

	return result, nil
}

// Count returns the total number of entities.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, countEntitiesSQL).Scan(&count); err != nil {
		return 0, eav.NewQueryError("count", err)
	}
	return count, nil
}

// ListIDs returns every entity id in descending order (newest first).
func (s *SQLiteStore) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, listIDsSQL)
	if err != nil {
		return nil, eav.NewQueryError("list_ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eav.NewQueryError("list_ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eav.NewQueryError("list_ids", err)
	}

	return ids, nil
}

// DistinctKeys returns priority (deduplicated) followed by every other
// attribute key, each once. Non-priority keys come in order of first
// appearance in the attribute table; that order belongs to the store.
func (s *SQLiteStore) DistinctKeys(ctx context.Context, priority []string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, distinctKeysSQL)
	if err != nil {
		return nil, eav.NewQueryError("distinct_keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eav.NewQueryError("distinct_keys", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, eav.NewQueryError("distinct_keys", err)
	}

	return eav.MergeColumns(priority, keys), nil
}

// Entities returns every entity in creation order.
func (s *SQLiteStore) Entities(ctx context.Context) ([]eav.Entity, error) {
	rows, err := s.db.QueryContext(ctx, listEntitiesSQL)
	if err != nil {
		return nil, eav.NewQueryError("entities", err)
	}
	defer rows.Close()

	var entities []eav.Entity
	for rows.Next() {
		var e eav.Entity
		if err := rows.Scan(&e.ID, &e.Value); err != nil {
			return nil, eav.NewQueryError("entities", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eav.NewQueryError("entities", err)
	}

	return entities, nil
}

// Attributes returns the attributes of one entity in insertion order,
// including repeated keys.
func (s *SQLiteStore) Attributes(ctx context.Context, entity eav.Entity) ([]eav.Attribute, error) {
	rows, err := s.db.QueryContext(ctx, entityAttributesSQL, entity.ID)
	if err != nil {
		return nil, eav.NewQueryError("attributes", err)
	}
	defer rows.Close()

	return scanAttributes(rows, "attributes")
}

// OpenReader opens a dedicated read-only connection to the store file.
// It never shares the writer's pool.
func (s *SQLiteStore) OpenReader(ctx context.Context) (eav.Reader, error) {
	return OpenReader(ctx, s.config.Path, s.config.BusyTimeout)
}

// Close releases the writer connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return eav.NewResourceError(s.config.Path, "close", err)
	}
	s.logger.Debug("staging store closed", "path", s.config.Path)
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// scanAttributes reads (entity_id, key, value) rows.
func scanAttributes(rows *sql.Rows, operation string) ([]eav.Attribute, error) {
	var attrs []eav.Attribute
	for rows.Next() {
		var a eav.Attribute
		if err := rows.Scan(&a.EntityID, &a.Key, &a.Value); err != nil {
			return nil, eav.NewQueryError(operation, err)
		}
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eav.NewQueryError(operation, err)
	}
	return attrs, nil
}
