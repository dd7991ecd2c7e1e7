package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeDuplicateID, "node %d already exists", 7)

	if err.Code != ErrCodeDuplicateID {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeDuplicateID)
	}

	if err.Message != "node 7 already exists" {
		t.Errorf("Message = %v, want %v", err.Message, "node 7 already exists")
	}

	expected := "DUPLICATE_ID: node 7 already exists"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInvalidScene, cause, "failed to decode")

	if err.Code != ErrCodeInvalidScene {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidScene)
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

	expected := "INVALID_SCENE: failed to decode: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeCycleDetected, "test"),
			code:     ErrCodeCycleDetected,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeCycleDetected, "test"),
			code:     ErrCodeUnknownID,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeInvalidScene, New(ErrCodeUnknownID, "inner"), "outer"),
			code:     ErrCodeInvalidScene,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("apply: %w", New(ErrCodeNodeInUse, "inner")),
			code:     ErrCodeNodeInUse,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
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
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeTypeMismatch, "test"),
			expected: ErrCodeTypeMismatch,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsStructural(t *testing.T) {
	for _, code := range []Code{ErrCodeDuplicateID, ErrCodeUnknownID, ErrCodeInvalidConfig, ErrCodeCycleDetected, ErrCodeNodeInUse} {
		if !IsStructural(New(code, "x")) {
			t.Errorf("IsStructural(%s) = false, want true", code)
		}
	}
	for _, err := range []error{New(ErrCodeTypeMismatch, "x"), errors.New("plain"), nil} {
		if IsStructural(err) {
			t.Errorf("IsStructural(%v) = true, want false", err)
		}
	}
}
