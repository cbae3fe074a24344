package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// skipLogLimit caps per-row warnings for one input.
const skipLogLimit = 100

// CSVOptions configures a CSVDecoder.
type CSVOptions struct {
	EntityColumn string
	KeyColumn    string
	ValueColumn  string
	Comma        rune
}

// CSVDecoder reads long-format CSV with a header row. Column order is free;
// columns are matched by name, case-insensitively. Malformed rows are
// skipped and counted.
type CSVDecoder struct {
	r       *csv.Reader
	entity  int
	key     int
	value   int
	line    int
	skipped int
	logger  *slog.Logger
}

// NewCSVDecoder reads the header from r and resolves the configured
// columns. A missing column is an error.
func NewCSVDecoder(r io.Reader, opts CSVOptions) (*CSVDecoder, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	d := &CSVDecoder{
		r:      cr,
		line:   1,
		logger: slog.Default().With("component", "ingest.csv"),
	}

	cols := []struct {
		name string
		def  string
		dst  *int
	}{
		{opts.EntityColumn, "entity", &d.entity},
		{opts.KeyColumn, "key", &d.key},
		{opts.ValueColumn, "value", &d.value},
	}
	for _, c := range cols {
		name := c.name
		if name == "" {
			name = c.def
		}
		i, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("csv header has no %q column", name)
		}
		*c.dst = i
	}

	return d, nil
}

// Next returns the next well-formed record.
func (d *CSVDecoder) Next() (Record, error) {
	for {
		row, err := d.r.Read()
		d.line++
		if err == io.EOF {
			return Record{}, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				d.skip("parse error", err)
				continue
			}
			return Record{}, fmt.Errorf("read csv line %d: %w", d.line, err)
		}

		if d.entity >= len(row) || d.key >= len(row) || d.value >= len(row) {
			d.skip("short row", fmt.Errorf("%d fields", len(row)))
			continue
		}

		return Record{
			Entity: row[d.entity],
			Key:    row[d.key],
			Value:  row[d.value],
		}, nil
	}
}

// Skipped returns the number of rows dropped so far.
func (d *CSVDecoder) Skipped() int {
	return d.skipped
}

func (d *CSVDecoder) skip(reason string, err error) {
	if d.skipped < skipLogLimit {
		d.logger.Warn("skipping row", "line", d.line, "reason", reason, "error", err)
	}
	d.skipped++
}
