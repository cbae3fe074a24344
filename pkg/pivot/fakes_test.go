package pivot

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/pivotal/pkg/eav"
)

// memSource is an in-memory Source for exporter tests.
type memSource struct {
	mu    sync.Mutex
	attrs []eav.Attribute

	keysErr error
	idsErr  error
	failIDs map[int64]bool
	delay   time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func newMemSource() *memSource {
	return &memSource{failIDs: make(map[int64]bool)}
}

func (s *memSource) add(id int64, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, eav.Attribute{EntityID: id, Key: key, Value: value})
}

func (s *memSource) DistinctKeys(ctx context.Context, priority []string) ([]string, error) {
	if s.keysErr != nil {
		return nil, s.keysErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for _, a := range s.attrs {
		if !slices.Contains(keys, a.Key) {
			keys = append(keys, a.Key)
		}
	}
	return eav.MergeColumns(priority, keys), nil
}

func (s *memSource) ListIDs(ctx context.Context) ([]int64, error) {
	if s.idsErr != nil {
		return nil, s.idsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for _, a := range s.attrs {
		if !slices.Contains(ids, a.EntityID) {
			ids = append(ids, a.EntityID)
		}
	}
	slices.Sort(ids)
	slices.Reverse(ids)
	return ids, nil
}

func (s *memSource) OpenReader(ctx context.Context) (eav.Reader, error) {
	n := s.active.Add(1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	return &memReader{src: s}, nil
}

type memReader struct {
	src *memSource
}

func (r *memReader) Attributes(ctx context.Context, ids []int64) ([]eav.Attribute, error) {
	if r.src.delay > 0 {
		time.Sleep(r.src.delay)
	}

	r.src.mu.Lock()
	defer r.src.mu.Unlock()

	var out []eav.Attribute
	for _, id := range ids {
		if r.src.failIDs[id] {
			return nil, eav.NewQueryError("chunk_attributes", errors.New("disk I/O error"))
		}
	}
	for _, a := range r.src.attrs {
		if slices.Contains(ids, a.EntityID) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b eav.Attribute) int {
		switch {
		case a.EntityID < b.EntityID:
			return -1
		case a.EntityID > b.EntityID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *memReader) Close() error {
	r.src.active.Add(-1)
	return nil
}

// recordingSink keeps everything written to it.
type recordingSink struct {
	mu        sync.Mutex
	header    []string
	batches   [][]eav.WideRow
	headerErr error
	batchErr  error
	onBatch   func()
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) WriteHeader(ctx context.Context, columns []string) error {
	if s.headerErr != nil {
		return s.headerErr
	}
	s.header = columns
	return nil
}

func (s *recordingSink) WriteBatch(ctx context.Context, rows []eav.WideRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onBatch != nil {
		s.onBatch()
	}
	if s.batchErr != nil {
		return 0, s.batchErr
	}
	s.batches = append(s.batches, rows)
	return len(rows), nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) rows() []eav.WideRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []eav.WideRow
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}
