// Package api composes the value store and the change tracker into the
// parameter transfer used by the control and real-time sides.
//
// The writer side calls Set from any goroutine. The consumer side calls Drain
// (or All) once per processing cycle and applies every (index, value) pair it
// yields. These functions sit on the audio thread's hot path:
//
// Performance Targets:
//   - Set:   ~2ns (atomic store + atomic OR), 0 allocs
//   - Get:   <1ns (atomic load), 0 allocs
//   - Drain: one atomic load per bitmap word, one atomic AND and one load per
//     reported parameter, 0 allocs
//
// Ordering:
//   - Set writes the value first, then marks the bit.
//   - Drain reads the bit first, clears it, then reads the value.
//
// Because of this order a reported value is never older than the write whose
// mark made the bit visible. A write landing between the clear and the value
// read is reported now and again on the next drain (a spurious notification
// with an already-seen value). A write landing after the value read re-marks
// the bit, so the next drain picks it up. Intermediate writes between drains
// coalesce: only the latest value is seen.
package api

import (
	"iter"

	"github.com/kolkov/paramxfer/internal/xfer/tracker"
	"github.com/kolkov/paramxfer/internal/xfer/valuestore"
)

// Transfer is a fixed-size set of float32 parameters shared between writers
// and one draining consumer.
//
// All methods are safe for concurrent use, except that one Iterator must not
// be shared between goroutines.
type Transfer struct {
	values  *valuestore.Store
	changed *tracker.Tracker
}

// New creates a transfer for n parameters. All values are zero and nothing is
// marked as changed.
func New(n int) *Transfer {
	return &Transfer{
		values:  valuestore.New(n),
		changed: tracker.New(n),
	}
}

// Len returns the number of parameters.
func (t *Transfer) Len() int {
	return t.values.Len()
}

// Words returns the number of bitmap words backing the change tracker.
func (t *Transfer) Words() int {
	return t.changed.Words()
}

// Set stores value for parameter index and marks it as changed.
//
// Index must be in [0, Len()); validation belongs to the caller. Out-of-range
// indices panic.
func (t *Transfer) Set(index int, value float32) {
	t.values.Set(index, value)
	t.changed.Mark(index)
}

// Get returns the current value of parameter index.
func (t *Transfer) Get(index int) float32 {
	return t.values.Get(index)
}

// Changed reports whether index is currently marked as changed.
func (t *Transfer) Changed(index int) bool {
	return t.changed.Marked(index)
}

// Pending returns how many parameters are currently marked as changed.
func (t *Transfer) Pending() int {
	return t.changed.Pending()
}

// Snapshot copies current values into dst and returns the number copied
// (min(len(dst), Len())). It does not touch change marks.
func (t *Transfer) Snapshot(dst []float32) int {
	n := min(len(dst), t.values.Len())
	for i := 0; i < n; i++ {
		dst[i] = t.values.Get(i)
	}
	return n
}

// Drain returns an iterator over every parameter marked as changed, in
// increasing index order. If clear is true the marks are consumed as the
// iterator reports them; otherwise the tracker is left untouched.
//
// The iterator may skip intermediate values of a parameter written several
// times, never its latest one, and may report a parameter once more than
// necessary.
func (t *Transfer) Drain(clear bool) Iterator {
	return Iterator{
		cursor: t.changed.Scan(clear),
		values: t.values,
	}
}

// All is Drain as a range-over-func sequence:
//
//	for index, value := range tr.All(true) {
//		smoothers[index].SetTarget(value)
//	}
//
// Breaking out of the loop early leaves the remaining marks set.
func (t *Transfer) All(clear bool) iter.Seq2[int, float32] {
	return func(yield func(int, float32) bool) {
		it := t.Drain(clear)
		for {
			index, value, ok := it.Next()
			if !ok || !yield(index, value) {
				return
			}
		}
	}
}

// Iterator pulls (index, value) pairs from a Transfer.
//
// It is a value type so the consumer can keep it on the stack; it is finite
// and cannot be rewound.
type Iterator struct {
	cursor tracker.Cursor
	values *valuestore.Store
}

// Next returns the next changed parameter and its current value. ok is false
// once the whole bitmap has been scanned.
func (it *Iterator) Next() (index int, value float32, ok bool) {
	index, ok = it.cursor.Next()
	if !ok {
		return 0, 0, false
	}
	return index, it.values.Get(index), true
}
