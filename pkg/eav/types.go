package eav

// Entity is a handle to one row of the entity table.
// The zero Entity has never been selected and cannot receive attributes.
type Entity struct {
	// ID is the surrogate key allocated by the store.
	ID int64 `json:"id"`

	// Value is the unique textual identity of the entity.
	Value string `json:"value"`
}

// Valid reports whether the handle refers to a stored entity.
func (e Entity) Valid() bool {
	return e.ID > 0
}

// Attribute is one key/value fact about an entity.
type Attribute struct {
	EntityID int64  `json:"entity_id"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// Pair is a key/value to attach to an entity. Batches of pairs are applied
// in slice order.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WideRow is one pivoted entity: one field per export column, in column
// order. Missing attributes are empty strings.
type WideRow []string

// AttachResult summarizes a best-effort batch attach.
type AttachResult struct {
	// Attached is the number of pairs written.
	Attached int `json:"attached"`

	// Failed lists the pairs that could not be written, in input order.
	Failed []FailedPair `json:"failed,omitempty"`
}

// FailedPair records a pair that was skipped during a batch attach.
type FailedPair struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// OK reports whether every pair in the batch was written.
func (r AttachResult) OK() bool {
	return len(r.Failed) == 0
}
