// Package tracker implements the change bitmap: one dirty bit per parameter,
// packed into native atomic words, with a resumable scanning cursor.
//
// # Protocol
//
// Writers call Mark after storing a new value. The consumer calls Scan once per
// processing cycle and walks the returned Cursor; every index whose bit was set
// when its word was loaded is reported in increasing order. With clear=true the
// cursor removes exactly the bit it reports, so marks landing on other bits of
// the same word during the scan survive.
//
// # Guarantees
//
//   - A bit set before the cursor reaches its word is always reported.
//   - A bit set after the cursor passed its position stays set for the next scan.
//   - A bit may be reported once more than strictly necessary: if a writer
//     marks again between the consumer's load and its clear, the second mark is
//     absorbed by the clear while the reported value is already the newer one;
//     if the writer marks after the clear, the next scan reports it again even
//     when the value was already observed.
//
// # Performance
//
// Mark is one atomic OR. Scanning costs one atomic load per word plus one
// atomic AND per reported bit when clearing. Nothing allocates; the Cursor is
// a small value type.
package tracker

import (
	"math/bits"
	"sync/atomic"

	"github.com/kolkov/paramxfer/internal/xfer/bitindex"
)

// Tracker holds the dirty bits for a fixed number of parameters.
type Tracker struct {
	words []atomic.Uintptr
	n     int
}

// New creates a tracker for n parameters with every bit clear.
func New(n int) *Tracker {
	if n < 0 {
		n = 0
	}
	return &Tracker{
		words: make([]atomic.Uintptr, bitindex.WordCount(n)),
		n:     n,
	}
}

// Len returns the number of tracked parameters.
func (t *Tracker) Len() int {
	return t.n
}

// Words returns the number of bitmap words.
func (t *Tracker) Words() int {
	return len(t.words)
}

// Mark sets the dirty bit for index.
//
// Safe against concurrent Mark on other bits of the same word and against
// concurrent clears by a Cursor.
//
// Index must be in [0, Len()). Indices past the last word panic; indices in
// the padding bits of the last word are caught by the explicit check.
func (t *Tracker) Mark(index int) {
	if uint(index) >= uint(t.n) {
		panic("tracker: index out of range")
	}
	word, mask := bitindex.Locate(index)
	t.words[word].Or(mask)
}

// Marked reports whether the dirty bit for index is currently set.
func (t *Tracker) Marked(index int) bool {
	word, mask := bitindex.Locate(index)
	return t.words[word].Load()&mask != 0
}

// Pending counts the dirty bits currently set.
//
// The result is a snapshot; concurrent Marks may change it immediately.
func (t *Tracker) Pending() int {
	total := 0
	for i := range t.words {
		total += bits.OnesCount(uint(t.words[i].Load()))
	}
	return total
}

// Reset clears every bit.
//
// Not intended for use while a Cursor is active.
func (t *Tracker) Reset() {
	for i := range t.words {
		t.words[i].Store(0)
	}
}

// Scan returns a cursor over the dirty indices. If clear is true each reported
// bit is cleared as it is reported.
//
// The cursor is not restartable: call Scan again for a fresh pass.
func (t *Tracker) Scan(clear bool) Cursor {
	return Cursor{
		t:     t,
		bit:   1,
		clear: clear,
	}
}

// Cursor walks a Tracker word by word, lowest bit first.
//
// A Cursor must only be used by one goroutine. The zero Cursor is exhausted.
type Cursor struct {
	t     *Tracker
	word  int
	bit   uintptr // lowest bit position still to be examined in word
	clear bool
}

// Next returns the next dirty index. ok is false once the last word has been
// scanned; every later call also returns false.
func (c *Cursor) Next() (index int, ok bool) {
	if c.t == nil {
		return 0, false
	}
	words := c.t.words

	var pending uintptr
	for {
		if c.word >= len(words) {
			return 0, false
		}
		// -bit keeps bit and everything above it.
		pending = words[c.word].Load() & -c.bit
		if pending != 0 {
			break
		}
		c.word++
		c.bit = 1
	}

	pos := bits.TrailingZeros(uint(pending))
	found := uintptr(1) << pos
	index = bitindex.Index(c.word, pos)

	if c.clear {
		words[c.word].And(^found)
	}

	// Shifting the top bit out yields 0: move to the next word.
	if next := found << 1; next != 0 {
		c.bit = next
	} else {
		c.word++
		c.bit = 1
	}

	return index, true
}
