package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestDocsError_Error(t *testing.T) {
	err := &DocsError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "operator not found",
	}

	expected := "NOT_FOUND: operator not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("query is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "query is required" {
		t.Errorf("Message = %q, want %q", err.Message, "query is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("operator", "Noise")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "Noise" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "Noise")
	}
	if err.Details["kind"] != "operator" {
		t.Errorf("Details[kind] = %v, want %q", err.Details["kind"], "operator")
	}
}

func TestNewMalformedRecord(t *testing.T) {
	err := NewMalformedRecord("operators/TOP/blank.html", "missing name")

	if err.Code != ErrMalformedRecord {
		t.Errorf("Code = %q, want %q", err.Code, ErrMalformedRecord)
	}
	if err.Details["source"] != "operators/TOP/blank.html" {
		t.Errorf("Details[source] = %v", err.Details["source"])
	}
}

func TestNewInitialization(t *testing.T) {
	err := NewInitialization("manager not ready")

	if err.Code != ErrInitialization {
		t.Errorf("Code = %q, want %q", err.Code, ErrInitialization)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
}

func TestNewIO_Unwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewIO("write index", cause)

	if !stderrors.Is(err, cause) {
		t.Error("NewIO should wrap its cause")
	}
	if err.Message != "write index: disk full" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("tutorial", "x"), ErrNotFound, true},
		{"different code", NewNotFound("tutorial", "x"), ErrInternal, false},
		{"wrapped", fmt.Errorf("lookup: %w", NewCacheInvalid("stale")), ErrCacheInvalid, true},
		{"plain error", stderrors.New("boom"), ErrInternal, false},
		{"nil", nil, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
