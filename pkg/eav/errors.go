package eav

import (
	"errors"
	"fmt"
)

// ErrNoCurrentEntity is wrapped by PreconditionError when an attribute is
// attached before any entity was selected.
var ErrNoCurrentEntity = errors.New("no current entity")

// PreconditionError reports an operation attempted in a state that does not
// allow it. No write is performed when it is returned.
type PreconditionError struct {
	Operation string // Operation that was refused ("attach", "attach_batch")
	Cause     error  // Underlying reason, usually ErrNoCurrentEntity
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PreconditionError) Unwrap() error {
	return e.Cause
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(operation string, cause error) *PreconditionError {
	return &PreconditionError{
		Operation: operation,
		Cause:     cause,
	}
}

// ResourceError represents a filesystem or connection failure.
type ResourceError struct {
	Resource  string // Path or DSN of the resource
	Operation string // Operation that failed ("open", "remove", "ping")
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource error [resource=%s, operation=%s]: %v", e.Resource, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ResourceError) Unwrap() error {
	return e.Cause
}

// NewResourceError creates a new ResourceError.
func NewResourceError(resource, operation string, cause error) *ResourceError {
	return &ResourceError{
		Resource:  resource,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError represents a failing prepare, execute, or read against the store.
type QueryError struct {
	Operation string // Operation that failed ("select_or_create", "list_ids", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(operation string, cause error) *QueryError {
	return &QueryError{
		Operation: operation,
		Cause:     cause,
	}
}
