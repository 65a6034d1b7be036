// Package errors provides structured error types for gitdeps.
//
// Every failure the install pipeline can produce carries a machine-readable
// [Code], so the CLI (and tests) can tell a failed ref listing from a failed
// clone without string matching.
//
// # Error Codes
//
//   - REMOTE_QUERY: listing the refs of a repository failed
//   - NO_MATCHING_VERSION: a version range matched no tag (see [NoMatchingVersionError])
//   - DOWNLOAD, CLONE, ARCHIVE: backend-specific fetch failures
//   - EXTRACTION: unpacking an archive failed
//   - INVALID_*: bad user input (manifest, metadata file, config)
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeClone, cause, "git clone %s", url)
//	if errors.Is(err, errors.ErrCodeClone) {
//	    // Handle clone failure
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidMetadata Code = "INVALID_METADATA"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Resolution errors
	ErrCodeRemoteQuery       Code = "REMOTE_QUERY"
	ErrCodeNoMatchingVersion Code = "NO_MATCHING_VERSION"

	// Retrieval errors
	ErrCodeDownload   Code = "DOWNLOAD"
	ErrCodeClone      Code = "CLONE"
	ErrCodeArchive    Code = "ARCHIVE"
	ErrCodeExtraction Code = "EXTRACTION"

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
// It unwraps the error chain looking for an error carrying a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var nm *NoMatchingVersionError
	if errors.As(err, &nm) {
		return nm.Code()
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

// NoMatchingVersionError is returned when a version range matches none of a
// repository's tags. It keeps the full ref set for diagnosis.
type NoMatchingVersionError struct {
	Repository string   // Repository URL that was searched
	Range      string   // Version range as written in the manifest
	Refs       []string // Every ref the repository advertised
}

// Error implements the error interface.
func (e *NoMatchingVersionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: no git tags in %s match the semantic version range %q", e.Code(), e.Repository, e.Range)
	if len(e.Refs) == 0 {
		b.WriteString(" (repository has no refs)")
		return b.String()
	}
	b.WriteString(":")
	for _, ref := range e.Refs {
		b.WriteString("\n    ")
		b.WriteString(ref)
	}
	return b.String()
}

// Code returns the error code for this error type.
func (e *NoMatchingVersionError) Code() Code {
	return ErrCodeNoMatchingVersion
}
