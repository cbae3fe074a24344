package eav

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestPreconditionError(t *testing.T) {
	err := error(NewPreconditionError("attach", ErrNoCurrentEntity))

	if !errors.Is(err, ErrNoCurrentEntity) {
		t.Error("expected errors.Is to match ErrNoCurrentEntity")
	}

	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatal("expected errors.As to match *PreconditionError")
	}
	if pe.Operation != "attach" {
		t.Errorf("Operation = %q, want %q", pe.Operation, "attach")
	}
	if !strings.Contains(err.Error(), "no current entity") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestResourceError(t *testing.T) {
	err := NewResourceError("/tmp/x.db", "remove", fs.ErrPermission)

	if !errors.Is(err, fs.ErrPermission) {
		t.Error("expected Unwrap to expose the cause")
	}
	if !strings.Contains(err.Error(), "resource=/tmp/x.db") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestQueryError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := NewQueryError("list_ids", cause)

	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if !strings.Contains(err.Error(), "operation=list_ids") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestAttachResult_OK(t *testing.T) {
	if !(AttachResult{Attached: 3}).OK() {
		t.Error("expected OK for result without failures")
	}
	r := AttachResult{Attached: 1, Failed: []FailedPair{{Key: "k", Error: "boom"}}}
	if r.OK() {
		t.Error("expected not OK when a pair failed")
	}
}

func TestEntity_Valid(t *testing.T) {
	if (Entity{}).Valid() {
		t.Error("zero entity must not be valid")
	}
	if !(Entity{ID: 1, Value: "x"}).Valid() {
		t.Error("stored entity must be valid")
	}
}
