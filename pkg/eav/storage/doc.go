// Package storage provides the SQLite implementation of the staging store.
//
// # Lifecycle
//
// NewSQLiteStore deletes any file already at the configured path (and its
// -wal and -shm companions) before creating a fresh database. The store is
// tuned for throughput rather than durability:
//
//   - WAL journal so readers never block on the writer
//   - synchronous = OFF
//   - temp_store = MEMORY
//   - foreign keys enforced so attributes cascade with their entity
//
// Never point it at data you want to keep.
//
// # Writers and Readers
//
// The store keeps a single writer connection. Export workers call
// OpenReader to get an independent read-only connection (mode=ro) to the
// same file, which is what lets them run side by side.
//
// # Producers
//
// SelectOrCreate returns an explicit eav.Entity handle that every attach
// call takes as a parameter, so several producers can share one store.
// Cursor wraps the store for a single producer that prefers the implicit
// "current entity" style:
//
//	cur := storage.NewCursor(store)
//	if _, err := cur.Select(ctx, "apple"); err != nil {
//	    return err
//	}
//	if err := cur.Attach(ctx, "color", "red"); err != nil {
//	    return err
//	}
package storage
