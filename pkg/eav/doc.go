// Package eav defines the entity-attribute-value model used by the staging
// store and the wide-row export pipeline.
//
// # Model
//
// An Entity is a surrogate integer id bound to a unique textual value. An
// Attribute is a (entity, key, value) triple; one entity may carry many
// attributes, and the same key may appear more than once for one entity.
//
// A WideRow is the export-time projection of one entity onto an ordered
// column list. It is never persisted.
//
// # Column Order
//
// MergeColumns combines a caller supplied priority list with the keys found
// in the store. Priority keys come first, deduplicated in place order; the
// remaining keys follow in the order the store reports them. That suffix
// order is defined by the store, not by the caller.
//
// # Errors
//
// Store operations return one of three typed errors:
//
//   - PreconditionError: an attribute was attached without a selected entity
//   - ResourceError: a file or connection could not be opened or removed
//   - QueryError: a prepare, execute, or read against the store failed
//
// Use errors.As to inspect them and errors.Is(err, ErrNoCurrentEntity) to
// detect the precondition failure.
package eav
