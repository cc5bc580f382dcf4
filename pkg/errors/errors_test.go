package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "no targets: %s", "pass --target or --class")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "no targets: pass --target or --class" {
		t.Errorf("Message = %q", err.Message)
	}

	expected := "INVALID_INPUT: no targets: pass --target or --class"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrCodeInvalidSnapshot, cause, "decode %s", "heap.json")

	if err.Code != ErrCodeInvalidSnapshot {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidSnapshot)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	expected := "INVALID_SNAPSHOT: decode heap.json: unexpected EOF"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestInternal(t *testing.T) {
	err := Internal("node %d has no exclusion", 7)
	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInternal)
	}
	if err.Message != "node 7 has no exclusion" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestIs(t *testing.T) {
	notFound := New(ErrCodeTargetNotFound, "instance %d not in snapshot", 42)

	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", notFound, ErrCodeTargetNotFound, true},
		{"non-matching code", notFound, ErrCodeInternal, false},
		{"outer code wins", Wrap(ErrCodeFileNotFound, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeFileNotFound, true},
		{"fmt wrapped", fmt.Errorf("search: %w", Internal("deferred node without exclusion")), ErrCodeInternal, true},
		{"non-Error type", errors.New("plain error"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		err      error
		expected Code
	}{
		{New(ErrCodeInvalidExclusions, "unknown keys: klass"), ErrCodeInvalidExclusions},
		{fmt.Errorf("load: %w", Wrap(ErrCodeTimeout, context.DeadlineExceeded, "search")), ErrCodeTimeout},
		{errors.New("plain"), ""},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.expected {
			t.Errorf("GetCode(%v) = %q, want %q", tt.err, got, tt.expected)
		}
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidTarget, "instance 10 is a GC root")); got != "instance 10 is a GC root" {
		t.Errorf("UserMessage() = %q, want the message without its code", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage() = %q, want %q", got, "plain error")
	}
}
