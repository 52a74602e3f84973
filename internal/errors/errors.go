package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors.
//
// Fatal codes (a run that hits one exits non-zero): ErrConfig, ErrAuth,
// ErrLocalFile, ErrSSH, ErrTransfer, ErrExec.
// Warning codes (logged, never change the run's verdict): ErrBackup, ErrReload.
const (
	ErrConfig    = "CONFIG"
	ErrAuth      = "AUTH"
	ErrLocalFile = "LOCAL_FILE"
	ErrSSH       = "SSH"
	ErrTransfer  = "TRANSFER"
	ErrExec      = "EXEC"
	ErrBackup    = "BACKUP"
	ErrReload    = "RELOAD"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
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

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

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
	var hdErr *Error
	if errors.As(err, &hdErr) {
		return hdErr.Code == code
	}
	return false
}

// IsWarning reports whether err carries one of the non-fatal codes.
func IsWarning(err error) bool {
	return IsCode(err, ErrBackup) || IsCode(err, ErrReload)
}
