package eav

import "context"

// Store is the read/write contract of the staging store.
// Implementations must allow OpenReader to be called concurrently with
// writes; each Reader is an independent connection.
type Store interface {
	// SelectOrCreate returns the entity for value, creating it if needed.
	SelectOrCreate(ctx context.Context, value string) (Entity, error)

	// Attach appends one attribute to entity.
	Attach(ctx context.Context, entity Entity, key, value string) error

	// AttachBatch appends pairs to entity, skipping pairs that fail.
	AttachBatch(ctx context.Context, entity Entity, pairs []Pair) (AttachResult, error)

	// Count returns the number of entities.
	Count(ctx context.Context) (int64, error)

	// ListIDs returns every entity id, newest first.
	ListIDs(ctx context.Context) ([]int64, error)

	// DistinctKeys returns the export column list for priority.
	DistinctKeys(ctx context.Context, priority []string) ([]string, error)

	// OpenReader opens a dedicated read-only connection.
	OpenReader(ctx context.Context) (Reader, error)

	// Close releases the writer connection.
	Close() error
}

// Reader is a read-only view of the store used by pivot workers.
type Reader interface {
	// Attributes returns the attributes of the given entities ordered by
	// entity id, then by insertion order.
	Attributes(ctx context.Context, entityIDs []int64) ([]Attribute, error)

	// Close releases the connection.
	Close() error
}
