package sink

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/pivotal/pkg/eav"
)

// CSVConfig configures a delimited-text sink.
type CSVConfig struct {
	// Path is the output file. Any existing file is replaced.
	Path string

	// Delimiter separates fields. Default: ','
	Delimiter rune
}

// CSV writes the header and rows as delimited text.
type CSV struct {
	path    string
	file    *os.File
	out     io.Writer
	writer  *csv.Writer
	columns int
	header  bool
	logger  *slog.Logger
}

// NewCSV removes any file at cfg.Path and creates a fresh one.
func NewCSV(cfg CSVConfig) (*CSV, error) {
	if cfg.Path == "" {
		return nil, NewSinkError("csv", "open", os.ErrInvalid)
	}
	if err := removeExisting(cfg.Path); err != nil {
		return nil, NewSinkError("csv", "open", err)
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewSinkError("csv", "open", err)
		}
	}

	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, NewSinkError("csv", "open", err)
	}

	s := NewCSVWriter(f, cfg.Delimiter)
	s.path = cfg.Path
	s.file = f
	return s, nil
}

// NewCSVWriter returns a CSV sink writing to w. Close flushes but does not
// close w.
func NewCSVWriter(w io.Writer, delimiter rune) *CSV {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	return &CSV{
		out:    w,
		writer: cw,
		logger: slog.Default().With("component", "sink.csv"),
	}
}

// Name returns "csv".
func (s *CSV) Name() string { return "csv" }

// Path returns the output file path, or "" for a writer-backed sink.
func (s *CSV) Path() string { return s.path }

// WriteHeader writes columns as the first record. An empty column list
// produces an empty header line.
func (s *CSV) WriteHeader(ctx context.Context, columns []string) error {
	if err := s.write(columns); err != nil {
		return NewSinkError("csv", "write_header", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return NewSinkError("csv", "write_header", err)
	}

	s.columns = len(columns)
	s.header = true
	return nil
}

// WriteBatch appends rows in order and flushes. On error it returns the
// number of rows written before the failure.
func (s *CSV) WriteBatch(ctx context.Context, rows []eav.WideRow) (int, error) {
	if !s.header {
		return 0, NewSinkError("csv", "write_batch", ErrHeaderNotWritten)
	}

	written := 0
	for _, row := range rows {
		if err := checkWidth(row, s.columns); err != nil {
			s.writer.Flush()
			return written, NewSinkError("csv", "write_batch", err)
		}
		if err := s.write(row); err != nil {
			return written, NewSinkError("csv", "write_batch", err)
		}
		written++
	}

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return written, NewSinkError("csv", "write_batch", err)
	}
	return written, nil
}

// write emits one record. encoding/csv renders a lone empty field as a
// blank line, which readers skip, so that record is written quoted.
func (s *CSV) write(record []string) error {
	if len(record) != 1 || record[0] != "" {
		return s.writer.Write(record)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return err
	}
	line := "\"\"\n"
	if s.writer.UseCRLF {
		line = "\"\"\r\n"
	}
	_, err := io.WriteString(s.out, line)
	return err
}

// Close flushes pending output and closes the file.
func (s *CSV) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return NewSinkError("csv", "close", err)
	}
	if s.file == nil {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return NewSinkError("csv", "close", err)
	}
	s.logger.Debug("csv output closed", "path", s.path)
	return nil
}
