package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mercator-hq/pivotal/pkg/eav"
)

// createTempStore creates a fresh staging store in a temporary directory.
func createTempStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(&SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "staging.db"),
		BusyTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func countRows(t *testing.T, s *SQLiteStore, query string, args ...any) int {
	t.Helper()

	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

// TestSQLiteStore_RecreatesExistingFile tests that open discards old data.
func TestSQLiteStore_RecreatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staging.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(&SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() failed: %v", err)
	}
	if _, err := first.SelectOrCreate(ctx, "apple"); err != nil {
		t.Fatalf("SelectOrCreate() failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(&SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() failed: %v", err)
	}
	defer second.Close()

	count, err := second.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected a fresh store, found %d entities", count)
	}
}

// TestSQLiteStore_EmptyPath tests construction with no path.
func TestSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore(&SQLiteConfig{})

	var re *eav.ResourceError
	if !errors.As(err, &re) {
		t.Fatalf("Expected *eav.ResourceError, got %v", err)
	}
}

// TestSQLiteStore_UnwritableDirectory tests construction in a missing directory.
func TestSQLiteStore_UnwritableDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "staging.db")

	_, err := NewSQLiteStore(&SQLiteConfig{Path: path})
	if err == nil {
		t.Fatal("Expected an error for a path in a missing directory")
	}
}

// TestSQLiteStore_SelectOrCreateIdempotent tests dedup of entity values.
func TestSQLiteStore_SelectOrCreateIdempotent(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	first, err := store.SelectOrCreate(ctx, "x")
	if err != nil {
		t.Fatalf("SelectOrCreate() failed: %v", err)
	}
	second, err := store.SelectOrCreate(ctx, "x")
	if err != nil {
		t.Fatalf("SelectOrCreate() failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected same id, got %d and %d", first.ID, second.ID)
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM entities WHERE value = ?", "x"); n != 1 {
		t.Errorf("Expected exactly one row for 'x', got %d", n)
	}

	other, err := store.SelectOrCreate(ctx, "y")
	if err != nil {
		t.Fatalf("SelectOrCreate() failed: %v", err)
	}
	if other.ID == first.ID {
		t.Error("Expected a new id for a new value")
	}
}

// TestSQLiteStore_AttachWithoutEntity tests the precondition on attach.
func TestSQLiteStore_AttachWithoutEntity(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	err := store.Attach(ctx, eav.Entity{}, "color", "red")

	var pe *eav.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *eav.PreconditionError, got %v", err)
	}
	if !errors.Is(err, eav.ErrNoCurrentEntity) {
		t.Error("Expected error to wrap ErrNoCurrentEntity")
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM attributes"); n != 0 {
		t.Errorf("Expected no writes, found %d attributes", n)
	}

	_, err = store.AttachBatch(ctx, eav.Entity{}, []eav.Pair{{Key: "a", Value: "b"}})
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *eav.PreconditionError from AttachBatch, got %v", err)
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM attributes"); n != 0 {
		t.Errorf("Expected no writes, found %d attributes", n)
	}
}

// TestSQLiteStore_AttachUnknownEntity tests the foreign key on attributes.
func TestSQLiteStore_AttachUnknownEntity(t *testing.T) {
	store := createTempStore(t)

	err := store.Attach(context.Background(), eav.Entity{ID: 42, Value: "ghost"}, "k", "v")

	var qe *eav.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Expected *eav.QueryError, got %v", err)
	}
}

// TestSQLiteStore_AttachBatch tests best-effort batch attach.
func TestSQLiteStore_AttachBatch(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	e, err := store.SelectOrCreate(ctx, "apple")
	if err != nil {
		t.Fatalf("SelectOrCreate() failed: %v", err)
	}

	result, err := store.AttachBatch(ctx, e, []eav.Pair{
		{Key: "color", Value: "red"},
		{Key: "shape", Value: "round"},
		{Key: "color", Value: "green"},
	})
	if err != nil {
		t.Fatalf("AttachBatch() failed: %v", err)
	}
	if result.Attached != 3 || !result.OK() {
		t.Errorf("Expected 3 attached and no failures, got %+v", result)
	}

	attrs, err := store.Attributes(ctx, e)
	if err != nil {
		t.Fatalf("Attributes() failed: %v", err)
	}
	want := []eav.Attribute{
		{EntityID: e.ID, Key: "color", Value: "red"},
		{EntityID: e.ID, Key: "shape", Value: "round"},
		{EntityID: e.ID, Key: "color", Value: "green"},
	}
	if !reflect.DeepEqual(attrs, want) {
		t.Errorf("Attributes() = %+v, want %+v", attrs, want)
	}
}

// TestSQLiteStore_AttachBatchPartialFailure tests that failing pairs are skipped.
func TestSQLiteStore_AttachBatchPartialFailure(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	e, err := store.SelectOrCreate(ctx, "apple")
	if err != nil {
		t.Fatalf("SelectOrCreate() failed: %v", err)
	}

	// Reject one specific key at the storage level.
	_, err = store.db.Exec(`CREATE TRIGGER reject_bad BEFORE INSERT ON attributes
		WHEN NEW.key = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	result, err := store.AttachBatch(ctx, e, []eav.Pair{
		{Key: "good", Value: "1"},
		{Key: "bad", Value: "2"},
		{Key: "also_good", Value: "3"},
	})
	if err != nil {
		t.Fatalf("AttachBatch() should not escalate pair failures: %v", err)
	}
	if result.Attached != 2 {
		t.Errorf("Expected 2 attached, got %d", result.Attached)
	}
	if len(result.Failed) != 1 || result.Failed[0].Key != "bad" {
		t.Errorf("Expected failure for 'bad', got %+v", result.Failed)
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM attributes"); n != 2 {
		t.Errorf("Expected 2 stored attributes, got %d", n)
	}
}

// TestSQLiteStore_CountAndListIDs tests entity counting and id ordering.
func TestSQLiteStore_CountAndListIDs(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	var created []int64
	for _, v := range []string{"a", "b", "c", "a"} {
		e, err := store.SelectOrCreate(ctx, v)
		if err != nil {
			t.Fatalf("SelectOrCreate(%q) failed: %v", v, err)
		}
		created = append(created, e.ID)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 entities, got %d", count)
	}

	ids, err := store.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs() failed: %v", err)
	}
	want := []int64{created[2], created[1], created[0]}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListIDs() = %v, want %v", ids, want)
	}
}

// TestSQLiteStore_DistinctKeys tests column discovery with a priority list.
func TestSQLiteStore_DistinctKeys(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	apple, _ := store.SelectOrCreate(ctx, "apple")
	pear, _ := store.SelectOrCreate(ctx, "pear")
	mustAttach(t, store, apple, "color", "red")
	mustAttach(t, store, pear, "color", "green")
	mustAttach(t, store, pear, "shape", "oval")

	got, err := store.DistinctKeys(ctx, []string{"shape"})
	if err != nil {
		t.Fatalf("DistinctKeys() failed: %v", err)
	}
	if want := []string{"shape", "color"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DistinctKeys() = %v, want %v", got, want)
	}

	again, err := store.DistinctKeys(ctx, []string{"shape"})
	if err != nil {
		t.Fatalf("DistinctKeys() failed: %v", err)
	}
	if !reflect.DeepEqual(got, again) {
		t.Errorf("DistinctKeys() not deterministic: %v then %v", got, again)
	}

	all, err := store.DistinctKeys(ctx, nil)
	if err != nil {
		t.Fatalf("DistinctKeys() failed: %v", err)
	}
	if want := []string{"color", "shape"}; !reflect.DeepEqual(all, want) {
		t.Errorf("DistinctKeys(nil) = %v, want %v", all, want)
	}
}

// TestSQLiteStore_Entities tests entity listing.
func TestSQLiteStore_Entities(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	a, _ := store.SelectOrCreate(ctx, "apple")
	p, _ := store.SelectOrCreate(ctx, "pear")

	got, err := store.Entities(ctx)
	if err != nil {
		t.Fatalf("Entities() failed: %v", err)
	}
	if want := []eav.Entity{a, p}; !reflect.DeepEqual(got, want) {
		t.Errorf("Entities() = %+v, want %+v", got, want)
	}
}

// TestSQLiteStore_CascadeDelete tests that attributes follow their entity.
func TestSQLiteStore_CascadeDelete(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	e, _ := store.SelectOrCreate(ctx, "apple")
	mustAttach(t, store, e, "color", "red")

	if _, err := store.db.Exec("DELETE FROM entities WHERE id = ?", e.ID); err != nil {
		t.Fatalf("delete entity: %v", err)
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM attributes"); n != 0 {
		t.Errorf("Expected cascade delete, found %d attributes", n)
	}
}

// TestReader_Attributes tests chunk reads over a read-only connection.
func TestReader_Attributes(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	x, _ := store.SelectOrCreate(ctx, "x")
	y, _ := store.SelectOrCreate(ctx, "y")
	z, _ := store.SelectOrCreate(ctx, "z")
	mustAttach(t, store, y, "color", "red")
	mustAttach(t, store, x, "color", "red")
	mustAttach(t, store, x, "color", "blue")
	mustAttach(t, store, z, "size", "L")

	reader, err := store.OpenReader(ctx)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer reader.Close()

	attrs, err := reader.Attributes(ctx, []int64{y.ID, x.ID})
	if err != nil {
		t.Fatalf("Attributes() failed: %v", err)
	}
	want := []eav.Attribute{
		{EntityID: x.ID, Key: "color", Value: "red"},
		{EntityID: x.ID, Key: "color", Value: "blue"},
		{EntityID: y.ID, Key: "color", Value: "red"},
	}
	if !reflect.DeepEqual(attrs, want) {
		t.Errorf("Attributes() = %+v, want %+v", attrs, want)
	}

	empty, err := reader.Attributes(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected no attributes for empty chunk, got %v, %v", empty, err)
	}
}

// TestReader_AttributesSubBatches tests that split queries keep entity
// and insertion order.
func TestReader_AttributesSubBatches(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	old := maxQueryParams
	maxQueryParams = 2
	t.Cleanup(func() { maxQueryParams = old })

	var ids []int64
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		e, _ := store.SelectOrCreate(ctx, name)
		ids = append(ids, e.ID)
	}
	mustAttach(t, store, eav.Entity{ID: ids[4]}, "k", "e1")
	mustAttach(t, store, eav.Entity{ID: ids[0]}, "k", "a1")
	mustAttach(t, store, eav.Entity{ID: ids[2]}, "k", "c1")
	mustAttach(t, store, eav.Entity{ID: ids[0]}, "k", "a2")

	reader, err := store.OpenReader(ctx)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer reader.Close()

	// Descending, the way ListIDs hands them out.
	chunk := []int64{ids[4], ids[3], ids[2], ids[1], ids[0]}
	attrs, err := reader.Attributes(ctx, chunk)
	if err != nil {
		t.Fatalf("Attributes() failed: %v", err)
	}
	want := []eav.Attribute{
		{EntityID: ids[0], Key: "k", Value: "a1"},
		{EntityID: ids[0], Key: "k", Value: "a2"},
		{EntityID: ids[2], Key: "k", Value: "c1"},
		{EntityID: ids[4], Key: "k", Value: "e1"},
	}
	if !reflect.DeepEqual(attrs, want) {
		t.Errorf("Attributes() = %+v, want %+v", attrs, want)
	}
	if chunk[0] != ids[4] {
		t.Error("Attributes() must not reorder the caller's slice")
	}
}

// TestReader_AttributesLargeChunk tests a chunk above SQLite's bound
// parameter limit.
func TestReader_AttributesLargeChunk(t *testing.T) {
	if testing.Short() {
		t.Skip("large chunk test skipped in short mode")
	}

	store := createTempStore(t)
	ctx := context.Background()

	const n = 40000
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() failed: %v", err)
	}
	for i := 1; i <= n; i++ {
		if _, err := tx.Exec("INSERT INTO entities (id, value) VALUES (?, ?)", i, fmt.Sprintf("e%d", i)); err != nil {
			t.Fatalf("insert entity failed: %v", err)
		}
		if _, err := tx.Exec("INSERT INTO attributes (key, value, entity_id) VALUES ('k', ?, ?)", fmt.Sprintf("v%d", i), i); err != nil {
			t.Fatalf("insert attribute failed: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	ids, err := store.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs() failed: %v", err)
	}

	reader, err := store.OpenReader(ctx)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer reader.Close()

	attrs, err := reader.Attributes(ctx, ids)
	if err != nil {
		t.Fatalf("Attributes() failed: %v", err)
	}
	if len(attrs) != n {
		t.Fatalf("Attributes() returned %d rows, want %d", len(attrs), n)
	}
	for i, a := range attrs {
		if a.EntityID != int64(i+1) {
			t.Fatalf("attrs[%d].EntityID = %d, want %d", i, a.EntityID, i+1)
		}
	}
}

// TestReader_ReadOnly tests that a reader cannot write.
func TestReader_ReadOnly(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	reader, err := OpenReader(ctx, store.Path(), time.Second)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.db.Exec(insertEntitySQL, "intruder"); err == nil {
		t.Error("Expected write through a read-only connection to fail")
	}
}

// TestReader_SeesWriterData tests reads while the writer stays open.
func TestReader_SeesWriterData(t *testing.T) {
	store := createTempStore(t)
	ctx := context.Background()

	reader, err := store.OpenReader(ctx)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer reader.Close()

	e, _ := store.SelectOrCreate(ctx, "late")
	mustAttach(t, store, e, "k", "v")

	attrs, err := reader.Attributes(ctx, []int64{e.ID})
	if err != nil {
		t.Fatalf("Attributes() failed: %v", err)
	}
	if len(attrs) != 1 {
		t.Errorf("Expected reader to see committed write, got %+v", attrs)
	}
}

// TestOpenReader_MissingFile tests opening a reader on a missing store.
func TestOpenReader_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.db")

	_, err := OpenReader(context.Background(), path, time.Second)

	var re *eav.ResourceError
	if !errors.As(err, &re) {
		t.Fatalf("Expected *eav.ResourceError, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Read-only open must not create the file")
	}
}

func mustAttach(t *testing.T, s *SQLiteStore, e eav.Entity, key, value string) {
	t.Helper()
	if err := s.Attach(context.Background(), e, key, value); err != nil {
		t.Fatalf("Attach(%q, %q) failed: %v", key, value, err)
	}
}
