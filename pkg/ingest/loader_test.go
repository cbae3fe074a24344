package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/pivotal/pkg/eav"
	"mercator-hq/pivotal/pkg/eav/storage"
)

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "staging.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// sliceDecoder replays fixed records.
type sliceDecoder struct {
	records []Record
	err     error
}

func (d *sliceDecoder) Next() (Record, error) {
	if len(d.records) == 0 {
		if d.err != nil {
			return Record{}, d.err
		}
		return Record{}, errEOF
	}
	rec := d.records[0]
	d.records = d.records[1:]
	return rec, nil
}

func TestLoader_Load(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	input := "entity,key,value\n" +
		"apple,color,red\n" +
		"apple,shape,round\n" +
		"pear,color,green\n" +
		",color,blue\n" +
		"apple,color,crimson\n"

	dec, err := NewCSVDecoder(strings.NewReader(input), CSVOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var hooks int
	loader := NewLoader(store, WithBatchSize(1), WithAttachHook(func(eav.AttachResult) { hooks++ }))
	stats, err := loader.Load(ctx, dec)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if stats.Records != 5 || stats.Attached != 4 || stats.Skipped != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Selects != 3 {
		t.Errorf("expected 3 selections (apple, pear, apple), got %d", stats.Selects)
	}
	if stats.Entities != 2 {
		t.Errorf("expected 2 entities, got %d", stats.Entities)
	}
	if hooks != 4 {
		t.Errorf("expected one hook call per batch of 1, got %d", hooks)
	}

	entities, err := store.Entities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	attrs, err := store.Attributes(ctx, entities[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(attrs) != 3 || attrs[2].Value != "crimson" {
		t.Errorf("expected apple to keep all three attributes in order, got %+v", attrs)
	}
}

func TestLoader_BatchesPerEntity(t *testing.T) {
	store := newStore(t)

	var sizes []int
	loader := NewLoader(store, WithBatchSize(2), WithAttachHook(func(r eav.AttachResult) {
		sizes = append(sizes, r.Attached)
	}))

	dec := &sliceDecoder{records: []Record{
		{Entity: "a", Key: "k1", Value: "1"},
		{Entity: "a", Key: "k2", Value: "2"},
		{Entity: "a", Key: "k3", Value: "3"},
		{Entity: "b", Key: "k1", Value: "4"},
	}}

	if _, err := loader.Load(context.Background(), dec); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := []int{2, 1, 1}
	if len(sizes) != len(want) {
		t.Fatalf("batch sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("batch sizes = %v, want %v", sizes, want)
			break
		}
	}
}

func TestLoader_DecoderError(t *testing.T) {
	store := newStore(t)
	boom := errors.New("truncated input")

	dec := &sliceDecoder{
		records: []Record{{Entity: "a", Key: "k", Value: "v"}},
		err:     boom,
	}

	stats, err := NewLoader(store).Load(context.Background(), dec)
	if !errors.Is(err, boom) {
		t.Fatalf("expected decoder error, got %v", err)
	}
	if stats.Records != 1 {
		t.Errorf("expected 1 record read, got %d", stats.Records)
	}
}

func TestLoader_Cancelled(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(store).Load(ctx, NewGenerator(DemoConfig{Entities: 10, Keys: 5, AttributesPerEntity: 2, Seed: 1}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoader_OpenFile(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "input.jsonl")
	writeFile(t, path, `{"entity": "apple", "attributes": {"color": "red", "shape": "round"}}`+"\n")

	dec, closer, err := OpenFile(path, Options{})
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	defer closer.Close()

	stats, err := NewLoader(store).Load(context.Background(), dec)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if stats.Attached != 2 || stats.Entities != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestOpenFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := OpenFile(filepath.Join(dir, "missing.csv"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(dir, "in.csv")
	writeFile(t, path, "a,b,c\n")
	if _, _, err := OpenFile(path, Options{}); err == nil {
		t.Error("expected error for missing columns")
	}
	if _, _, err := OpenFile(path, Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
