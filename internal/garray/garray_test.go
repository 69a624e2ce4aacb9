package garray

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tamirms/mphash/internal/bits"
	"github.com/tamirms/mphash/internal/hypergraph"
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

// randomPeelable draws random edges over 3r vertices until they peel.
func randomPeelable(t *testing.T, rng *rand.Rand, numEdges int, r uint32) ([]hypergraph.Edge, []hypergraph.Step) {
	t.Helper()
	p := hypergraph.NewPeeler()
	edges := make([]hypergraph.Edge, numEdges)
	for attempt := 0; attempt < 1000; attempt++ {
		for i := range edges {
			edges[i] = hypergraph.Edge{rng.Uint32N(r), r + rng.Uint32N(r), 2*r + rng.Uint32N(r)}
		}
		order, err := p.Peel(edges, 3*r)
		if err == nil {
			return edges, append([]hypergraph.Step(nil), order...)
		}
	}
	t.Fatalf("no peelable graph with %d edges over r=%d", numEdges, r)
	return nil, nil
}

// TestNewIsAllSentinel checks fresh arrays and their padding.
func TestNewIsAllSentinel(t *testing.T) {
	for _, n := range []uint32{1, 15, 16, 17, 100} {
		a := New(n)
		if got, want := len(a.Words()), WordCount(n); got != want {
			t.Fatalf("n=%d: %d words, want %d", n, got, want)
		}
		for i := uint32(0); i < n; i++ {
			if a.Marked(i) {
				t.Fatalf("n=%d: vertex %d marked in a fresh array", n, i)
			}
		}
	}
}

// TestSetGet exercises codes at word boundaries.
func TestSetGet(t *testing.T) {
	a := New(40)
	for _, i := range []uint32{0, 15, 16, 31, 32, 39} {
		a.Set(i, uint8(i%3))
	}
	for _, i := range []uint32{0, 15, 16, 31, 32, 39} {
		if got := a.Get(i); got != uint8(i%3) {
			t.Errorf("Get(%d) = %d, want %d", i, got, i%3)
		}
	}
	if a.Get(1) != bits.Sentinel {
		t.Errorf("untouched code changed: %d", a.Get(1))
	}
}

// TestAssignHomesInjective verifies the core invariant: every edge selects
// its own pivot, and no two edges share a home.
func TestAssignHomesInjective(t *testing.T) {
	rng := newTestRNG(t)
	for iter := 0; iter < 30; iter++ {
		numEdges := 1 + int(rng.Uint32N(300))
		r := uint32(float64(numEdges)*1.23/3) + 2
		edges, order := randomPeelable(t, rng, numEdges, r)
		g := Assign(edges, order, 3*r)

		pivotOf := make([]uint32, len(edges))
		for _, st := range order {
			pivotOf[st.Edge] = edges[st.Edge][st.Pivot]
		}

		homes := make(map[uint32]int)
		for i, e := range edges {
			home := e[g.Select(e)]
			if home != pivotOf[i] {
				t.Fatalf("iter %d: edge %d home %d, pivot %d", iter, i, home, pivotOf[i])
			}
			if prev, ok := homes[home]; ok {
				t.Fatalf("iter %d: edges %d and %d share home %d", iter, prev, i, home)
			}
			homes[home] = i
			if !g.Marked(home) {
				t.Fatalf("iter %d: home %d is unmarked", iter, home)
			}
		}

		marked := 0
		for v := uint32(0); v < 3*r; v++ {
			if g.Marked(v) {
				marked++
			}
		}
		if marked != numEdges {
			t.Fatalf("iter %d: %d marked vertices, want %d", iter, marked, numEdges)
		}
	}
}

// TestAssignDeterministic re-runs Assign on the same order and requires
// identical words.
func TestAssignDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	edges, order := randomPeelable(t, rng, 200, 90)
	a := Assign(edges, order, 270)
	b := Assign(edges, order, 270)
	if diff := cmp.Diff(a.Words(), b.Words()); diff != "" {
		t.Errorf("g-array differs between runs (-first +second):\n%s", diff)
	}
}

// TestHomeMatchesSelect checks the word-level decode helper against Select.
func TestHomeMatchesSelect(t *testing.T) {
	rng := newTestRNG(t)
	edges, order := randomPeelable(t, rng, 100, 45)
	g := Assign(edges, order, 135)
	for i, e := range edges {
		if got, want := Home(g.Words(), e), e[g.Select(e)]; got != want {
			t.Fatalf("edge %d: Home = %d, want %d", i, got, want)
		}
	}
}
