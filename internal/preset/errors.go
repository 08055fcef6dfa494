package preset

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion is wrapped by ParseError when a preset's format
// version has a major version this build does not read.
var ErrUnsupportedVersion = errors.New("unsupported preset version")

// ParseError represents a preset that could not be loaded, with position
// information where it is known.
//
// Fields:
//   - File: Preset path or name
//   - Line: Line number (1-indexed, 0 if unknown)
//   - Message: Human-readable error description
//   - Suggestion: Optional hint for fixing the error
//   - Err: Underlying error, if any
//
// Example output:
//
//	pad.yaml:7: parameter index -3 is negative
//
//	Suggestion: Parameter indices are zero-based
//
// Thread Safety: Immutable after creation, safe for concurrent use.
type ParseError struct {
	File       string
	Line       int
	Message    string
	Suggestion string
	Err        error
}

// Error implements the error interface.
//
// Format: file:line: message (or file: message when the line is unknown)
func (e *ParseError) Error() string {
	var result string
	if e.Line > 0 {
		result = fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	} else {
		result = fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	if e.Suggestion != "" {
		result += fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion)
	}
	return result
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
