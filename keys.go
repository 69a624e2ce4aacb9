package mphash

import (
	"bytes"
	"fmt"

	"github.com/zeebo/xxh3"

	mpherrors "github.com/tamirms/mphash/errors"
)

// maxKeys bounds the key count so that 3R, including range growth, stays
// well inside uint32 vertex indices.
const maxKeys = 1 << 30

// checkDuplicates rejects a key set containing two identical keys.
//
// Keys are bucketed by their 64-bit xxh3 digest and only digest collisions
// are compared byte-wise. The returned error names both input positions.
func checkDuplicates(keys [][]byte) error {
	seen := make(map[uint64]int, len(keys))
	// Rare digest collisions between distinct keys chain here.
	var extra map[uint64][]int

	for i, k := range keys {
		h := xxh3.Hash(k)
		first, ok := seen[h]
		if !ok {
			seen[h] = i
			continue
		}
		if bytes.Equal(keys[first], k) {
			return fmt.Errorf("%w: keys %d and %d are both %q", mpherrors.ErrDuplicateKey, first, i, truncateKey(k))
		}
		for _, j := range extra[h] {
			if bytes.Equal(keys[j], k) {
				return fmt.Errorf("%w: keys %d and %d are both %q", mpherrors.ErrDuplicateKey, j, i, truncateKey(k))
			}
		}
		if extra == nil {
			extra = make(map[uint64][]int)
		}
		extra[h] = append(extra[h], i)
	}
	return nil
}

// truncateKey shortens a key for error messages.
func truncateKey(k []byte) []byte {
	const maxShown = 64
	if len(k) > maxShown {
		return k[:maxShown]
	}
	return k
}

// StringKeys converts string keys for Build. The bytes are copied.
func StringKeys(keys []string) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out
}
