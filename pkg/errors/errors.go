// Package errors provides structured error types for graphwriter.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the service, client, and CLI
//   - Machine-readable error codes for log filtering and exit status decisions
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes follow the failure taxonomy of the service:
//   - MALFORMED_REQUEST, EMPTY_FIELD, INVALID_REQUEST: codec and request validation,
//     scoped to one connection
//   - RENDER_FAILURE: a render backend exited with a non-zero status
//   - LISTEN_BIND_FAILURE, ACCEPT_FAILURE: listening socket failures, fatal to the service
//   - INVALID_CONFIG: configuration could not be loaded or validated
//   - SERVICE_UNAVAILABLE: the client could not reach the service
//
// # Usage
//
//	err := errors.New(errors.ErrCodeEmptyField, "request target is empty")
//	if errors.Is(err, errors.ErrCodeEmptyField) {
//	    // drop the connection
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeListenBind, origErr, "listen on %s", addr)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Request errors (connection-scoped, never fatal)
	ErrCodeMalformedRequest Code = "MALFORMED_REQUEST"
	ErrCodeEmptyField       Code = "EMPTY_FIELD"
	ErrCodeInvalidRequest   Code = "INVALID_REQUEST"

	// Render errors (job-scoped, logged and discarded)
	ErrCodeRenderFailure Code = "RENDER_FAILURE"

	// Socket errors (fatal to the service)
	ErrCodeListenBind Code = "LISTEN_BIND_FAILURE"
	ErrCodeAccept     Code = "ACCEPT_FAILURE"

	// Configuration errors
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Client errors
	ErrCodeUnavailable Code = "SERVICE_UNAVAILABLE"

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

// IsFatal reports whether err affects the listening socket itself.
// Such failures terminate the service; everything else stays scoped to
// one connection or one job.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeListenBind, ErrCodeAccept:
		return true
	}
	return false
}
