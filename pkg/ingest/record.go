package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Record is one long-format input line: an attribute of an entity.
type Record struct {
	Entity string
	Key    string
	Value  string
}

// Decoder yields records in input order. Next returns io.EOF once the input
// is exhausted.
type Decoder interface {
	Next() (Record, error)
}

// Input formats.
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// DetectFormat returns format when set, otherwise guesses from the file
// extension. Unknown extensions are read as CSV.
func DetectFormat(path, format string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatCSV
	}
}

// Options selects columns and parsing for file input.
type Options struct {
	// Format is "csv" or "jsonl". Empty detects from the extension.
	Format string

	// CSV column names. Defaults: entity, key, value.
	EntityColumn string
	KeyColumn    string
	ValueColumn  string

	// Comma is the CSV delimiter. Zero means ','.
	Comma rune
}

// OpenFile opens path and returns a decoder for its format. The caller
// closes the returned closer.
func OpenFile(path string, opts Options) (Decoder, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}

	switch DetectFormat(path, opts.Format) {
	case FormatJSONL:
		return NewJSONLDecoder(f), f, nil
	case FormatCSV:
		dec, err := NewCSVDecoder(f, CSVOptions{
			EntityColumn: opts.EntityColumn,
			KeyColumn:    opts.KeyColumn,
			ValueColumn:  opts.ValueColumn,
			Comma:        opts.Comma,
		})
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return dec, f, nil
	default:
		f.Close()
		return nil, nil, fmt.Errorf("unsupported input format %q", opts.Format)
	}
}
