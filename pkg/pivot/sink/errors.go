package sink

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrRowWidth is returned when a row does not have one field per column.
	ErrRowWidth = errors.New("row width does not match column count")

	// ErrNoColumns is returned by table sinks when the header is empty.
	// A table needs at least one column.
	ErrNoColumns = errors.New("no columns to create table")

	// ErrColumnCollision is returned by the SQLite sink when two keys differ
	// only in ASCII case. SQLite column names are case-insensitive.
	ErrColumnCollision = errors.New("column names collide ignoring case")

	// ErrHeaderNotWritten is returned when a batch arrives before the header.
	ErrHeaderNotWritten = errors.New("header not written")
)

// SinkError represents a failure writing to an output destination.
type SinkError struct {
	Sink      string // Sink name ("csv", "sqlite", "postgres", "ndjson")
	Operation string // Operation that failed ("open", "write_header", "write_batch", "close")
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("sink error [sink=%s, operation=%s]: %v", e.Sink, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SinkError) Unwrap() error {
	return e.Cause
}

// NewSinkError creates a new SinkError.
func NewSinkError(sink, operation string, cause error) *SinkError {
	return &SinkError{
		Sink:      sink,
		Operation: operation,
		Cause:     cause,
	}
}

// removeExisting deletes path if present so every export starts from an
// empty destination.
func removeExisting(paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func checkWidth(row []string, columns int) error {
	if len(row) != columns {
		return fmt.Errorf("%w: got %d fields, want %d", ErrRowWidth, len(row), columns)
	}
	return nil
}
