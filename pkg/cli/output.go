package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"mercator-hq/pivotal/pkg/eav"
	"mercator-hq/pivotal/pkg/ingest"
	"mercator-hq/pivotal/pkg/pivot"
	"mercator-hq/pivotal/pkg/publish"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is a human readable table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatCSV is one line per export run.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return OutputFormat(s), nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (want text, json or csv)", s))
	}
}

// RunSummary is everything one "pivotal export" invocation produced.
type RunSummary struct {
	Ingest  *ingest.Stats    `json:"ingest,omitempty"`
	Exports []*pivot.Report  `json:"exports"`
	Uploads []publish.Upload `json:"uploads,omitempty"`
}

// OK reports whether every export completed without losing rows.
func (s *RunSummary) OK() bool {
	for _, r := range s.Exports {
		if r == nil || !r.OK() {
			return false
		}
	}
	return true
}

// EntityListing is one staged entity with its raw attributes in insertion
// order. A key written twice appears twice.
type EntityListing struct {
	ID         int64      `json:"id"`
	Entity     string     `json:"entity"`
	Attributes []eav.Pair `json:"attributes"`
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, summary *RunSummary) error
	FormatEntitiesTo(w io.Writer, entities []EntityListing) error
}

// TextFormatter renders aligned sections.
type TextFormatter struct{}

// FormatTo writes summary as text.
func (f *TextFormatter) FormatTo(w io.Writer, summary *RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if st := summary.Ingest; st != nil {
		fmt.Fprintf(tw, "Ingest\n")
		fmt.Fprintf(tw, "  records\t%d\n", st.Records)
		fmt.Fprintf(tw, "  entities\t%d\n", st.Entities)
		fmt.Fprintf(tw, "  attached\t%d\n", st.Attached)
		if st.Failed > 0 || st.Skipped > 0 {
			fmt.Fprintf(tw, "  failed\t%d\n", st.Failed)
			fmt.Fprintf(tw, "  skipped\t%d\n", st.Skipped)
		}
		fmt.Fprintf(tw, "  duration\t%s\n", round(st.Duration))
		fmt.Fprintln(tw)
	}

	if len(summary.Exports) > 0 {
		fmt.Fprintf(tw, "SINK\tCOLUMNS\tENTITIES\tCHUNKS\tROWS\tFAILED\tDURATION\n")
		for _, r := range summary.Exports {
			if r == nil {
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
				r.Sink, len(r.Columns), r.Entities, r.Chunks, r.RowsWritten,
				len(r.Failed)+r.SinkFailures, round(r.Duration))
		}
	}

	if len(summary.Uploads) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "UPLOAD\tBYTES\n")
		for _, u := range summary.Uploads {
			fmt.Fprintf(tw, "s3://%s/%s\t%d\n", u.Bucket, u.Key, u.Bytes)
		}
	}

	return tw.Flush()
}

// FormatEntitiesTo writes one line per attribute.
func (f *TextFormatter) FormatEntitiesTo(w io.Writer, entities []EntityListing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tENTITY\tKEY\tVALUE\n")
	for _, e := range entities {
		if len(e.Attributes) == 0 {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\n", e.ID, e.Entity)
			continue
		}
		for _, a := range e.Attributes {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Entity, a.Key, a.Value)
		}
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes summary as a single JSON document.
func (f *JSONFormatter) FormatTo(w io.Writer, summary *RunSummary) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(summary)
}

// FormatEntitiesTo writes entities as a JSON array.
func (f *JSONFormatter) FormatEntitiesTo(w io.Writer, entities []EntityListing) error {
	if entities == nil {
		entities = []EntityListing{}
	}
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(entities)
}

// CSVFormatter writes one row per export run.
type CSVFormatter struct{}

var csvHeader = []string{"run_id", "sink", "columns", "entities", "chunks", "rows_written", "failed_chunks", "sink_failures", "duration_ms"}

// FormatTo writes summary.Exports as CSV with a header line.
func (f *CSVFormatter) FormatTo(w io.Writer, summary *RunSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range summary.Exports {
		if r == nil {
			continue
		}
		if err := cw.Write([]string{
			r.RunID,
			r.Sink,
			strconv.Itoa(len(r.Columns)),
			strconv.Itoa(r.Entities),
			strconv.Itoa(r.Chunks),
			strconv.Itoa(r.RowsWritten),
			strconv.Itoa(len(r.Failed)),
			strconv.Itoa(r.SinkFailures),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatEntitiesTo writes entities back in long format, one row per
// attribute, with the entity id first.
func (f *CSVFormatter) FormatEntitiesTo(w io.Writer, entities []EntityListing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "entity", "key", "value"}); err != nil {
		return err
	}
	for _, e := range entities {
		id := strconv.FormatInt(e.ID, 10)
		if len(e.Attributes) == 0 {
			if err := cw.Write([]string{id, e.Entity, "", ""}); err != nil {
				return err
			}
			continue
		}
		for _, a := range e.Attributes {
			if err := cw.Write([]string{id, e.Entity, a.Key, a.Value}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

func round(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Microsecond)
}
