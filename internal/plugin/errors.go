package plugin

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the host-facing API.
var (
	// ErrIndexOutOfRange is returned when a host addresses a parameter that
	// does not exist. The transfer itself is never called with such an index.
	ErrIndexOutOfRange = errors.New("parameter index out of range")

	// ErrInvalidSampleRate is returned for non-positive or non-finite rates.
	ErrInvalidSampleRate = errors.New("invalid sample rate")

	// ErrInvalidConfig is returned by New for unusable configurations.
	ErrInvalidConfig = errors.New("invalid plugin config")
)

// IndexError reports a rejected parameter index.
//
// Fields:
//   - Op: Host operation that was rejected ("set", "get")
//   - Index: The index the host sent
//   - Count: Number of parameters the plugin exposes
//   - Suggestion: Optional hint for fixing the caller
//
// IndexError unwraps to ErrIndexOutOfRange:
//
//	if errors.Is(err, plugin.ErrIndexOutOfRange) { ... }
//
// Thread Safety: Immutable after creation, safe for concurrent use.
type IndexError struct {
	Op         string
	Index      int
	Count      int
	Suggestion string
}

// Error implements the error interface.
//
// Format: op parameter N: parameter index out of range [0, count)
func (e *IndexError) Error() string {
	result := fmt.Sprintf("%s parameter %d: %v [0, %d)", e.Op, e.Index, ErrIndexOutOfRange, e.Count)
	if e.Suggestion != "" {
		result += fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion)
	}
	return result
}

// Unwrap returns ErrIndexOutOfRange.
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

func newIndexError(op string, index, count int) *IndexError {
	e := &IndexError{Op: op, Index: index, Count: count}
	switch {
	case index < 0:
		e.Suggestion = "Parameter indices are zero-based and non-negative"
	case index == count:
		e.Suggestion = fmt.Sprintf("The last valid index is %d (off-by-one?)", count-1)
	default:
		e.Suggestion = fmt.Sprintf("Raise parameters.count in the config above %d or fix the host mapping", index)
	}
	return e
}
