package bits

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// TestWithCodeRoundTrip verifies that setting a code leaves all other codes
// in the word untouched.
func TestWithCodeRoundTrip(t *testing.T) {
	rng := newTestRNG(t)
	for iter := 0; iter < 1000; iter++ {
		w := rng.Uint32()
		i := rng.Uint32N(CodesPerWord)
		v := uint8(rng.Uint32N(4))

		got := WithCode(w, i, v)
		if Code(got, i) != v {
			t.Fatalf("iter %d: Code(%08x, %d) = %d, want %d", iter, got, i, Code(got, i), v)
		}
		for j := uint32(0); j < CodesPerWord; j++ {
			if j != i && Code(got, j) != Code(w, j) {
				t.Fatalf("iter %d: code %d changed from %d to %d", iter, j, Code(w, j), Code(got, j))
			}
		}
	}
}

// TestSentinelCount compares the word-parallel count against a per-code scan.
func TestSentinelCount(t *testing.T) {
	rng := newTestRNG(t)
	for iter := 0; iter < 1000; iter++ {
		w := rng.Uint32()
		want := 0
		for j := uint32(0); j < CodesPerWord; j++ {
			if Code(w, j) == Sentinel {
				want++
			}
		}
		if got := SentinelCount(w); got != want {
			t.Fatalf("SentinelCount(%08x) = %d, want %d", w, got, want)
		}
	}

	if got := SentinelCount(0xFFFFFFFF); got != CodesPerWord {
		t.Errorf("all-sentinel word: got %d, want %d", got, CodesPerWord)
	}
	// 0b10 and 0b01 must not be mistaken for the sentinel.
	if got := SentinelCount(0xAAAAAAAA); got != 0 {
		t.Errorf("all-2 word: got %d, want 0", got)
	}
	if got := SentinelCount(0x55555555); got != 0 {
		t.Errorf("all-1 word: got %d, want 0", got)
	}
}

// TestMarkedPrefix checks every prefix length, including the full word.
func TestMarkedPrefix(t *testing.T) {
	rng := newTestRNG(t)
	for iter := 0; iter < 200; iter++ {
		w := rng.Uint32()
		for c := uint32(0); c <= CodesPerWord; c++ {
			var want uint32
			for j := uint32(0); j < c; j++ {
				if Code(w, j) != Sentinel {
					want++
				}
			}
			if got := MarkedPrefix(w, c); got != want {
				t.Fatalf("MarkedPrefix(%08x, %d) = %d, want %d", w, c, got, want)
			}
		}
	}
}
