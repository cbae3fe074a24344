package storage

import (
	"context"

	"mercator-hq/pivotal/pkg/eav"
)

// Cursor tracks the most recently selected entity for a single producer.
// Attach calls target that entity implicitly. A Cursor must only be used
// from one goroutine; concurrent producers should each hold their own
// Cursor or pass entity handles to the store directly.
type Cursor struct {
	store   eav.Store
	current eav.Entity
}

// NewCursor returns a Cursor over store with no entity selected.
func NewCursor(store eav.Store) *Cursor {
	return &Cursor{store: store}
}

// Select resolves value to an entity (creating it if needed) and makes it
// the current entity. On failure the previous selection is kept.
func (c *Cursor) Select(ctx context.Context, value string) (eav.Entity, error) {
	e, err := c.store.SelectOrCreate(ctx, value)
	if err != nil {
		return eav.Entity{}, err
	}
	c.current = e
	return e, nil
}

// Current returns the selected entity and whether one has been selected.
func (c *Cursor) Current() (eav.Entity, bool) {
	return c.current, c.current.Valid()
}

// Attach appends key/value to the current entity. It fails with a
// *eav.PreconditionError if nothing has been selected.
func (c *Cursor) Attach(ctx context.Context, key, value string) error {
	return c.store.Attach(ctx, c.current, key, value)
}

// AttachBatch appends pairs to the current entity on a best-effort basis.
func (c *Cursor) AttachBatch(ctx context.Context, pairs []eav.Pair) (eav.AttachResult, error) {
	return c.store.AttachBatch(ctx, c.current, pairs)
}
