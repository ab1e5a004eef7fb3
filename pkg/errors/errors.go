// Package errors provides structured error types for cargo-ab-lint.
//
// This package defines error codes and types that enable:
//   - Consistent handling of the failure taxonomy across packages
//   - Machine-readable error codes for programmatic handling
//   - User-facing messages that carry the manifest path and line
//
// # Error Codes
//
// The codes map onto how far a failure propagates:
//   - WORKSPACE_NOT_FOUND: discovery failed, the whole run aborts
//   - INVALID_MANIFEST: one manifest is skipped, siblings continue
//   - SOURCE_READ: the unused-dependency check for one crate becomes unknown
//   - FIX_CONFLICT: one manifest's fixes are skipped
//   - FIX_WRITE: one manifest could not be written
//
// # Usage
//
//	err := errors.New(errors.ErrCodeWorkspaceNotFound, "no workspace above %s", dir)
//	if errors.Is(err, errors.ErrCodeWorkspaceNotFound) {
//	    // abort
//	}
//
//	// Attach a location to a wrapped cause
//	err := errors.WrapAt(errors.ErrCodeInvalidManifest, cause, path, line, "parse manifest")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Discovery errors
	ErrCodeWorkspaceNotFound Code = "WORKSPACE_NOT_FOUND"
	ErrCodeManifestNotFound  Code = "MANIFEST_NOT_FOUND"

	// Source scanning errors
	ErrCodeSourceRead Code = "SOURCE_READ"

	// Fix errors
	ErrCodeFixConflict Code = "FIX_CONFLICT"
	ErrCodeFixWrite    Code = "FIX_WRITE"
	ErrCodeFixMismatch Code = "FIX_MISMATCH"
)

// Error is a structured error with a code, an optional location and an optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Path    string // File the error refers to (optional)
	Line    int    // 1-based line within Path, 0 when unknown
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if loc := e.Location(); loc != "" {
		msg = loc + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Location renders "path:line", "path" or "" depending on what is known.
func (e *Error) Location() string {
	switch {
	case e.Path == "":
		return ""
	case e.Line > 0:
		return fmt.Sprintf("%s:%d", e.Path, e.Line)
	default:
		return e.Path
	}
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

// WrapAt is Wrap with a file location attached.
func WrapAt(code Code, cause error, path string, line int, format string, args ...any) *Error {
	e := Wrap(code, cause, format, args...)
	e.Path = path
	e.Line = line
	return e
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

// LineOf returns the line attached to the first *Error in the chain, or 0.
func LineOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Line
	}
	return 0
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the location and message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		msg := e.Message
		if loc := e.Location(); loc != "" {
			msg = loc + ": " + msg
		}
		if e.Cause != nil {
			msg += ": " + e.Cause.Error()
		}
		return msg
	}
	return err.Error()
}
