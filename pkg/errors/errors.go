// Package errors provides structured error types for kinetic.
//
// This package defines error codes and types that enable:
//   - Consistent reporting of rejected graph commands back to the host
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages in the CLI
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Structural codes (DUPLICATE_ID, UNKNOWN_ID, INVALID_CONFIG, CYCLE_DETECTED,
// NODE_IN_USE) are produced synchronously when a command is applied to the graph.
// The offending command is skipped and the rest of its batch proceeds.
//
// TYPE_MISMATCH is an evaluation-time code. It never aborts a pass; instead the
// failing node resolves to an invalid value that travels downstream.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDuplicateID, "node %d already exists", id)
//	if errors.Is(err, errors.ErrCodeDuplicateID) {
//	    // Handle duplicate
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidScene, origErr, "failed to decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Graph command errors
	ErrCodeDuplicateID   Code = "DUPLICATE_ID"
	ErrCodeUnknownID     Code = "UNKNOWN_ID"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeCycleDetected Code = "CYCLE_DETECTED"
	ErrCodeNodeInUse     Code = "NODE_IN_USE"

	// Evaluation errors
	ErrCodeTypeMismatch Code = "TYPE_MISMATCH"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidScene  Code = "INVALID_SCENE"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsStructural reports whether err carries one of the codes produced when a
// graph command is rejected at apply time.
func IsStructural(err error) bool {
	switch GetCode(err) {
	case ErrCodeDuplicateID, ErrCodeUnknownID, ErrCodeInvalidConfig, ErrCodeCycleDetected, ErrCodeNodeInUse:
		return true
	}
	return false
}
