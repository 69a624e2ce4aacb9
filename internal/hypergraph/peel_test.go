package hypergraph

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	mpherrors "github.com/tamirms/mphash/errors"
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

// checkOrder verifies that order is a valid elimination order: every edge
// appears once and each step's pivot has degree 1 among the edges not yet
// peeled at that point.
func checkOrder(t *testing.T, edges []Edge, numVertices uint32, order []Step) {
	t.Helper()
	if len(order) != len(edges) {
		t.Fatalf("order has %d steps, want %d", len(order), len(edges))
	}
	degree := make([]int, numVertices)
	for _, e := range edges {
		for _, v := range e {
			degree[v]++
		}
	}
	seen := make([]bool, len(edges))
	for i, st := range order {
		if seen[st.Edge] {
			t.Fatalf("step %d: edge %d peeled twice", i, st.Edge)
		}
		seen[st.Edge] = true
		if st.Pivot > 2 {
			t.Fatalf("step %d: pivot index %d", i, st.Pivot)
		}
		pv := edges[st.Edge][st.Pivot]
		if degree[pv] != 1 {
			t.Fatalf("step %d: pivot vertex %d has degree %d", i, pv, degree[pv])
		}
		for _, v := range edges[st.Edge] {
			degree[v]--
		}
	}
}

// TestPeelSyntheticAcyclic builds hypergraphs that are acyclic by
// construction (every edge owns a private vertex) and requires a full order.
func TestPeelSyntheticAcyclic(t *testing.T) {
	rng := newTestRNG(t)
	const r = 64
	for iter := 0; iter < 50; iter++ {
		numEdges := 1 + int(rng.Uint32N(r))
		edges := make([]Edge, numEdges)
		for i := range edges {
			// Vertex 2r+i in the last block belongs to edge i alone.
			edges[i] = Edge{rng.Uint32N(r), r + rng.Uint32N(r), 2*r + uint32(i)}
		}
		order, err := NewPeeler().Peel(edges, 3*r)
		if err != nil {
			t.Fatalf("iter %d: unexpected error: %v", iter, err)
		}
		checkOrder(t, edges, 3*r, order)
	}
}

// TestPeelDetectsCycle feeds hypergraphs containing a 2-core and requires
// failure.
func TestPeelDetectsCycle(t *testing.T) {
	tests := []struct {
		name  string
		edges []Edge
		nv    uint32
	}{
		{
			name:  "parallel_edges",
			edges: []Edge{{0, 1, 2}, {0, 1, 2}},
			nv:    3,
		},
		{
			// Every vertex has degree 2.
			name:  "two_core",
			edges: []Edge{{0, 2, 4}, {0, 3, 5}, {1, 2, 5}, {1, 3, 4}},
			nv:    6,
		},
		{
			name:  "core_with_tail",
			edges: []Edge{{0, 2, 4}, {0, 3, 5}, {1, 2, 5}, {1, 3, 4}, {6, 7, 8}},
			nv:    9,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewPeeler().Peel(tt.edges, tt.nv)
			if !errors.Is(err, mpherrors.ErrCycleDetected) {
				t.Fatalf("expected ErrCycleDetected, got order=%v err=%v", order, err)
			}
			if order != nil {
				t.Errorf("partial order returned on failure: %v", order)
			}
		})
	}
}

// TestPeelNoFalsePositives cross-checks Peel against a brute-force 2-core
// computation on random small hypergraphs.
func TestPeelNoFalsePositives(t *testing.T) {
	rng := newTestRNG(t)
	p := NewPeeler()
	for iter := 0; iter < 2000; iter++ {
		r := 1 + rng.Uint32N(6)
		numEdges := 1 + int(rng.Uint32N(3*r))
		edges := make([]Edge, numEdges)
		for i := range edges {
			edges[i] = Edge{rng.Uint32N(r), r + rng.Uint32N(r), 2*r + rng.Uint32N(r)}
		}

		want := bruteForcePeelable(edges, 3*r)
		order, err := p.Peel(edges, 3*r)
		if want {
			if err != nil {
				t.Fatalf("iter %d: peelable graph reported %v", iter, err)
			}
			checkOrder(t, edges, 3*r, order)
		} else if !errors.Is(err, mpherrors.ErrCycleDetected) {
			t.Fatalf("iter %d: graph with a 2-core reported success", iter)
		}
	}
}

// bruteForcePeelable repeatedly removes any edge holding a degree-1 vertex.
func bruteForcePeelable(edges []Edge, nv uint32) bool {
	alive := make([]bool, len(edges))
	for i := range alive {
		alive[i] = true
	}
	remaining := len(edges)
	for progress := true; progress; {
		progress = false
		degree := make([]int, nv)
		for i, e := range edges {
			if alive[i] {
				for _, v := range e {
					degree[v]++
				}
			}
		}
		for i, e := range edges {
			if alive[i] && (degree[e[0]] == 1 || degree[e[1]] == 1 || degree[e[2]] == 1) {
				alive[i] = false
				remaining--
				progress = true
				break
			}
		}
	}
	return remaining == 0
}

// TestPeelRejectsBadEdges covers the input validation paths.
func TestPeelRejectsBadEdges(t *testing.T) {
	p := NewPeeler()
	if _, err := p.Peel([]Edge{{0, 1, 9}}, 3); err == nil {
		t.Error("expected error for out-of-range vertex")
	}
	if _, err := p.Peel([]Edge{{0, 0, 2}}, 3); err == nil {
		t.Error("expected error for repeated vertex")
	}
}

// TestPeelerReuse verifies that scratch from a failed attempt does not leak
// into the next one.
func TestPeelerReuse(t *testing.T) {
	p := NewPeeler()
	if _, err := p.Peel([]Edge{{0, 1, 2}, {0, 1, 2}}, 3); err == nil {
		t.Fatal("expected cycle")
	}
	edges := []Edge{{0, 2, 4}, {1, 3, 5}}
	order, err := p.Peel(edges, 6)
	if err != nil {
		t.Fatalf("unexpected error after reuse: %v", err)
	}
	checkOrder(t, edges, 6, order)
}
