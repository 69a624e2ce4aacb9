// Package bits provides low-level primitives for words of packed 2-bit codes.
//
// A code word holds CodesPerWord 2-bit codes, least-significant group first:
// code i of the word lives in bits [2i, 2i+2).
package bits

import "math/bits"

const (
	// CodesPerWord is the number of 2-bit codes packed into one uint32.
	CodesPerWord = 16

	// Sentinel marks a vertex that is nobody's home. Both bits set, so it is
	// congruent to 0 mod 3 when summed.
	Sentinel = 3

	// lowBits selects the low bit of every 2-bit group.
	lowBits = 0x55555555
)

// Code extracts code i (0 <= i < CodesPerWord) from w.
func Code(w uint32, i uint32) uint8 {
	return uint8(w>>(2*i)) & 0x3
}

// WithCode returns w with code i replaced by v.
func WithCode(w uint32, i uint32, v uint8) uint32 {
	shift := 2 * i
	return w&^(0x3<<shift) | uint32(v&0x3)<<shift
}

// SentinelCount returns how many codes of w equal Sentinel.
func SentinelCount(w uint32) int {
	return bits.OnesCount32(w & lowBits & (w >> 1))
}

// MarkedPrefix returns how many of the first c codes of w (c <= CodesPerWord)
// are not Sentinel.
func MarkedPrefix(w uint32, c uint32) uint32 {
	if c == 0 {
		return 0
	}
	mask := uint32((uint64(1) << (2 * c)) - 1)
	return c - uint32(SentinelCount(w&mask))
}
