// Package errors provides the structured error taxonomy used by decrepit.
//
// Every failure raised while resolving a source carries a [Code]. The codes
// split into two families that are treated very differently:
//
//   - Remote-data failures (MALFORMED_VERSION, SCRAPE_ERROR, NOT_FOUND,
//     NETWORK_ERROR) describe the outside world: a page changed shape, a
//     mirror is down, a release has no package. The dispatch engine logs
//     them and reports the source as unknown. See [IsRemote].
//   - Configuration failures (CONFIGURATION_ERROR, PRECONDITION_VIOLATION,
//     INVALID_INPUT) mean the tool itself was set up wrong. They propagate
//     and abort the run.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "no package for Fedora %s", release)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // ...
//	}
//
//	err := errors.Wrap(errors.ErrCodeScrape, cause, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Remote-data errors
	ErrCodeMalformedVersion Code = "MALFORMED_VERSION"
	ErrCodeScrape           Code = "SCRAPE_ERROR"
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeNetwork          Code = "NETWORK_ERROR"

	// Configuration errors
	ErrCodePrecondition  Code = "PRECONDITION_VIOLATION"
	ErrCodeConfiguration Code = "CONFIGURATION_ERROR"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// IsRemote reports whether err describes a failure of remote data rather
// than of the tool's own configuration. Errors without a code count as
// remote: they come from transports and decoders, not from setup.
func IsRemote(err error) bool {
	if err == nil {
		return false
	}
	switch GetCode(err) {
	case ErrCodePrecondition, ErrCodeConfiguration, ErrCodeInvalidInput:
		return false
	}
	return true
}
