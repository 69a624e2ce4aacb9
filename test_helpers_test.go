package mphash

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA0987654321
)

// newTestRNG returns a deterministic RNG seeded from the test name.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// fillFromRNG fills buf with pseudo-random bytes from rng.
func fillFromRNG(rng *rand.Rand, buf []byte) {
	for i := 0; i+8 <= len(buf); i += 8 {
		binary.LittleEndian.PutUint64(buf[i:], rng.Uint64())
	}
	if tail := len(buf) % 8; tail > 0 {
		v := rng.Uint64()
		start := len(buf) - tail
		for j := 0; j < tail; j++ {
			buf[start+j] = byte(v >> (j * 8))
		}
	}
}

// generateRandomKeys creates n distinct pseudo-random keys of the specified
// size. keySize must be at least 4 so the index prefix keeps them distinct.
func generateRandomKeys(rng *rand.Rand, n, keySize int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = make([]byte, keySize)
		fillFromRNG(rng, keys[i])
		binary.BigEndian.PutUint32(keys[i], uint32(i))
	}
	return keys
}

// generateStringKeys creates n distinct printable keys of varying length.
func generateStringKeys(rng *rand.Rand, n int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		suffix := make([]byte, rng.IntN(12))
		for j := range suffix {
			suffix[j] = byte('a' + rng.IntN(26))
		}
		keys[i] = fmt.Appendf(nil, "%d-%s", i, suffix)
	}
	return keys
}

// checkBijection fails the test unless m maps keys onto [0, len(keys))
// without repeats.
func checkBijection(t *testing.T, m *MPHF, keys [][]byte) {
	t.Helper()
	seen := make([]int, len(keys))
	for i := range seen {
		seen[i] = -1
	}
	for i, k := range keys {
		c := m.Hash(k)
		if int(c) >= len(keys) {
			t.Fatalf("key %d (%q): code %d out of range [0, %d)", i, k, c, len(keys))
		}
		if seen[c] >= 0 {
			t.Fatalf("keys %d and %d share code %d", seen[c], i, c)
		}
		seen[c] = i
	}
}
