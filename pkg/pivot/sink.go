package pivot

import (
	"context"

	"mercator-hq/pivotal/pkg/eav"
)

// Sink receives the output of an export: the header once, then batches of
// wide rows in completion order.
type Sink interface {
	// WriteHeader prepares the destination for columns. It is called once,
	// before any batch.
	WriteHeader(ctx context.Context, columns []string) error

	// WriteBatch writes rows and returns how many were written. A partial
	// write returns the count so far together with the error.
	WriteBatch(ctx context.Context, rows []eav.WideRow) (int, error)

	// Close flushes and releases the destination.
	Close() error
}

// sinkName returns the name a sink reports, or "unknown".
func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}
