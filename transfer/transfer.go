// Package transfer provides the public API for lock-free parameter transfer.
//
// See doc.go for detailed documentation and examples.
package transfer

import (
	"iter"

	internal "github.com/kolkov/paramxfer/internal/xfer/api"
)

// Iterator pulls changed (index, value) pairs from a Transfer.
//
// Call Next until ok is false. An Iterator is finite, cannot be rewound and
// must stay on one goroutine.
type Iterator = internal.Iterator

// Transfer is a fixed-size set of float32 parameters shared between any
// number of writers and one draining consumer.
type Transfer struct {
	impl *internal.Transfer
}

// New creates a transfer for parameterCount parameters.
//
// Every value starts at zero and no parameter is marked as changed. The size
// is fixed for the lifetime of the Transfer.
//
// Example:
//
//	params := transfer.New(100)
func New(parameterCount int) *Transfer {
	return &Transfer{impl: internal.New(parameterCount)}
}

// Len returns the number of parameters.
func (t *Transfer) Len() int {
	return t.impl.Len()
}

// Set stores value for parameter index and marks it as changed.
//
// Safe to call from any goroutine, concurrently with every other method.
// Concurrent writes to the same index are not ordered: the last store wins.
//
// Index must be in [0, Len()). Validate indices coming from outside before
// calling Set; an out-of-range index panics.
func (t *Transfer) Set(index int, value float32) {
	t.impl.Set(index, value)
}

// Get returns the latest value of parameter index, or 0 if never set.
//
// Never blocks and never allocates.
func (t *Transfer) Get(index int) float32 {
	return t.impl.Get(index)
}

// Drain returns an iterator over the parameters changed since they were last
// drained with clear=true, in increasing index order.
//
// With clear=false the change marks are left in place, so a later Drain sees
// the same set plus anything newly changed.
//
// Example:
//
//	it := params.Drain(true)
//	for {
//		index, value, ok := it.Next()
//		if !ok {
//			break
//		}
//		apply(index, value)
//	}
func (t *Transfer) Drain(clear bool) Iterator {
	return t.impl.Drain(clear)
}

// All is Drain as a range-over-func sequence.
func (t *Transfer) All(clear bool) iter.Seq2[int, float32] {
	return t.impl.All(clear)
}

// Pending returns how many parameters are currently marked as changed.
//
// The count is a snapshot and may be stale by the time it is returned.
func (t *Transfer) Pending() int {
	return t.impl.Pending()
}

// Snapshot copies current values into dst without consuming change marks and
// returns how many were copied.
func (t *Transfer) Snapshot(dst []float32) int {
	return t.impl.Snapshot(dst)
}
