package pivot

import (
	"context"
	"fmt"
)

// KeySource reports the distinct attribute keys of a store.
type KeySource interface {
	DistinctKeys(ctx context.Context, priority []string) ([]string, error)
}

// DiscoverColumns returns the export column list: priority first
// (deduplicated), then every other key the store holds. For fixed store
// contents and priority the result is the same on every call.
func DiscoverColumns(ctx context.Context, src KeySource, priority []string) ([]string, error) {
	columns, err := src.DistinctKeys(ctx, priority)
	if err != nil {
		return nil, fmt.Errorf("discover columns: %w", err)
	}
	if columns == nil {
		columns = []string{}
	}
	return columns, nil
}
