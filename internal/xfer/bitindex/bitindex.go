// Package bitindex maps parameter indices onto a bitset packed into native
// machine words.
//
// A parameter index i lives in word i / WordBits at bit position
// i mod WordBits:
//
//	index 0   -> word 0, mask 0x1
//	index 5   -> word 0, mask 0x20
//	index 64  -> word 1, mask 0x1   (64-bit platform)
//
// Packing many dirty flags into one word keeps the tracker to one atomic
// read-modify-write per Mark and one atomic load per scanned word, instead of
// one atomic cell per parameter.
package bitindex

import "math/bits"

// WordBits is the width in bits of the native atomic word (uintptr).
//
// 64 on amd64/arm64, 32 on 386/arm/wasm.
const WordBits = bits.UintSize

// wordShift is log2(WordBits), used for the power-of-two divide.
const wordShift = 5 + WordBits>>6

// bitMask selects the position of an index inside its word.
const bitMask = WordBits - 1

// WordIndex returns the word holding the dirty bit for index.
//
//go:nosplit
func WordIndex(index int) int {
	//nolint:gosec // G115: indices are non-negative by contract.
	return int(uint(index) >> wordShift)
}

// BitMask returns the single-bit mask for index within its word.
//
//go:nosplit
func BitMask(index int) uintptr {
	//nolint:gosec // G115: indices are non-negative by contract.
	return uintptr(1) << (uint(index) & bitMask)
}

// Locate returns both halves of the mapping at once.
//
//go:nosplit
func Locate(index int) (word int, mask uintptr) {
	return WordIndex(index), BitMask(index)
}

// Index is the inverse of Locate: the parameter index for bit position pos
// (0-based, not a mask) in word.
//
//go:nosplit
func Index(word, pos int) int {
	return word*WordBits + pos
}

// WordCount returns how many words are needed to hold n bits, ceil(n / WordBits).
func WordCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + WordBits - 1) / WordBits
}
