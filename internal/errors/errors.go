package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig       = "CONFIG"        // bad or missing configuration
	ErrAuth         = "AUTH"          // remote host rejected the credential
	ErrNetwork      = "NETWORK"       // host unreachable, refused, or DNS failure
	ErrTimeout      = "TIMEOUT"       // connect or command deadline exceeded
	ErrConnection   = "CONNECTION"    // established transport failed
	ErrNotConnected = "NOT_CONNECTED" // operation requires a connected session
	ErrExec         = "EXEC"          // remote command could not be executed
	ErrParse        = "PARSE"         // command output did not match the expected shape
	ErrUnsupported  = "UNSUPPORTED"   // metric has no commands for the remote dialect
	ErrUnavailable  = "UNAVAILABLE"   // every candidate command failed this cycle
)

// Error is a structured error with a code, a user-facing message, an
// optional fix suggestion, and an optional underlying cause:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Newf creates a structured error with a formatted message and no suggestion.
func Newf(code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrConnection code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrConnection,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface with the formatted three-part layout.
func (e *Error) Error() string {
	var b strings.Builder

	// First line: failure symbol + main message
	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	// Include cause if present (why it failed)
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	// Include suggestion if present (how to fix)
	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Code == code
	}
	return false
}

// Code returns the code of a structured Error, or "" for any other error.
func Code(err error) string {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Code
	}
	return ""
}

// IsConnectionFatal reports whether err means the session transport is no
// longer usable and a reconnect is required.
func IsConnectionFatal(err error) bool {
	switch Code(err) {
	case ErrAuth, ErrNetwork, ErrConnection, ErrNotConnected:
		return true
	}
	return false
}
