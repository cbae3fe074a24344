package storage

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/pivotal/pkg/eav"
)

func TestCursor_AttachBeforeSelect(t *testing.T) {
	store := createTempStore(t)
	cursor := NewCursor(store)
	ctx := context.Background()

	if _, ok := cursor.Current(); ok {
		t.Fatal("Expected no current entity on a new cursor")
	}

	err := cursor.Attach(ctx, "color", "red")
	var pe *eav.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *eav.PreconditionError, got %v", err)
	}

	_, err = cursor.AttachBatch(ctx, []eav.Pair{{Key: "color", Value: "red"}})
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *eav.PreconditionError from AttachBatch, got %v", err)
	}

	if n := countRows(t, store, "SELECT COUNT(*) FROM attributes"); n != 0 {
		t.Errorf("Expected no writes, found %d attributes", n)
	}
}

func TestCursor_SelectThenAttach(t *testing.T) {
	store := createTempStore(t)
	cursor := NewCursor(store)
	ctx := context.Background()

	apple, err := cursor.Select(ctx, "apple")
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if err := cursor.Attach(ctx, "color", "red"); err != nil {
		t.Fatalf("Attach() failed: %v", err)
	}

	pear, err := cursor.Select(ctx, "pear")
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	result, err := cursor.AttachBatch(ctx, []eav.Pair{
		{Key: "color", Value: "green"},
		{Key: "shape", Value: "oval"},
	})
	if err != nil {
		t.Fatalf("AttachBatch() failed: %v", err)
	}
	if result.Attached != 2 {
		t.Errorf("Expected 2 attached, got %d", result.Attached)
	}

	current, ok := cursor.Current()
	if !ok || current != pear {
		t.Errorf("Current() = %+v, %v; want %+v", current, ok, pear)
	}

	appleAttrs, _ := store.Attributes(ctx, apple)
	pearAttrs, _ := store.Attributes(ctx, pear)
	if len(appleAttrs) != 1 || len(pearAttrs) != 2 {
		t.Errorf("Attributes landed on the wrong entity: apple=%v pear=%v", appleAttrs, pearAttrs)
	}

	// Re-selecting an existing value returns the same entity.
	again, err := cursor.Select(ctx, "apple")
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if again.ID != apple.ID {
		t.Errorf("Expected id %d on reselect, got %d", apple.ID, again.ID)
	}
}

// failingStore refuses SelectOrCreate and delegates everything else.
type failingStore struct {
	eav.Store
}

func (failingStore) SelectOrCreate(context.Context, string) (eav.Entity, error) {
	return eav.Entity{}, eav.NewQueryError("select_or_create", errors.New("disk full"))
}

func TestCursor_SelectFailureKeepsSelection(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	cursor := NewCursor(store)
	apple, err := cursor.Select(ctx, "apple")
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}

	cursor.store = failingStore{Store: store}
	if _, err := cursor.Select(ctx, "pear"); err == nil {
		t.Fatal("Expected Select() to fail")
	}

	current, ok := cursor.Current()
	if !ok || current != apple {
		t.Errorf("Expected previous selection %+v to survive, got %+v", apple, current)
	}
}
