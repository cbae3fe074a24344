package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"mercator-hq/pivotal/pkg/eav"
)

// NDJSONConfig configures a JSON Lines sink.
type NDJSONConfig struct {
	// Path is the output file. Any existing file is replaced.
	Path string
}

// NDJSON writes one JSON object per row. Object keys follow column order.
type NDJSON struct {
	path    string
	file    *os.File
	w       *bufio.Writer
	keys    [][]byte
	columns int
	header  bool
}

// NewNDJSON removes any file at cfg.Path and creates a fresh one.
func NewNDJSON(cfg NDJSONConfig) (*NDJSON, error) {
	if cfg.Path == "" {
		return nil, NewSinkError("ndjson", "open", os.ErrInvalid)
	}
	if err := removeExisting(cfg.Path); err != nil {
		return nil, NewSinkError("ndjson", "open", err)
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewSinkError("ndjson", "open", err)
		}
	}

	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, NewSinkError("ndjson", "open", err)
	}

	s := NewNDJSONWriter(f)
	s.path = cfg.Path
	s.file = f
	return s, nil
}

// NewNDJSONWriter returns an NDJSON sink writing to w.
func NewNDJSONWriter(w io.Writer) *NDJSON {
	return &NDJSON{w: bufio.NewWriter(w)}
}

// Name returns "ndjson".
func (s *NDJSON) Name() string { return "ndjson" }

// Path returns the output file path, or "" for a writer-backed sink.
func (s *NDJSON) Path() string { return s.path }

// WriteHeader records the columns; nothing is written.
func (s *NDJSON) WriteHeader(ctx context.Context, columns []string) error {
	s.keys = make([][]byte, len(columns))
	for i, c := range columns {
		k, err := json.Marshal(c)
		if err != nil {
			return NewSinkError("ndjson", "write_header", err)
		}
		s.keys[i] = k
	}
	s.columns = len(columns)
	s.header = true
	return nil
}

// WriteBatch writes one line per row.
func (s *NDJSON) WriteBatch(ctx context.Context, rows []eav.WideRow) (int, error) {
	if !s.header {
		return 0, NewSinkError("ndjson", "write_batch", ErrHeaderNotWritten)
	}

	written := 0
	for _, row := range rows {
		if err := checkWidth(row, s.columns); err != nil {
			return written, NewSinkError("ndjson", "write_batch", err)
		}
		if err := s.writeRow(row); err != nil {
			return written, NewSinkError("ndjson", "write_batch", err)
		}
		written++
	}

	if err := s.w.Flush(); err != nil {
		return written, NewSinkError("ndjson", "write_batch", err)
	}
	return written, nil
}

func (s *NDJSON) writeRow(row eav.WideRow) error {
	s.w.WriteByte('{')
	for i, v := range row {
		if i > 0 {
			s.w.WriteByte(',')
		}
		s.w.Write(s.keys[i])
		s.w.WriteByte(':')
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		s.w.Write(b)
	}
	s.w.WriteByte('}')
	return s.w.WriteByte('\n')
}

// Close flushes pending output and closes the file.
func (s *NDJSON) Close() error {
	if err := s.w.Flush(); err != nil {
		return NewSinkError("ndjson", "close", err)
	}
	if s.file == nil {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return NewSinkError("ndjson", "close", err)
	}
	return nil
}
