// Package sink provides the output destinations of a wide-row export.
//
// Every sink implements pivot.Sink: WriteHeader is called once with the
// column list, then WriteBatch once per finished chunk, then Close.
//
//   - CSV: delimited text with a header record
//   - SQLiteTable: a fresh SQLite database with one TEXT column per key
//   - PostgresTable: a dropped and recreated Postgres table filled with COPY
//   - NDJSON: one JSON object per row, keys in column order
//
// File sinks replace any existing destination when they are opened. Missing
// attributes are written as empty strings, never as NULL.
//
// SQLite compares column names without regard to ASCII case, so keys such
// as "Color" and "color" cannot share a SQLite table. The SQLite sink
// rejects such a header with ErrColumnCollision and that export fails before
// any worker starts; the other sinks keep both columns.
//
// Failures are returned as *SinkError.
package sink
