// Package hypergraph certifies that a 3-uniform hypergraph is acyclic by
// peeling it, and records the elimination order the g-array assignment
// consumes.
//
// Edges are never materialized as adjacency lists. Each vertex keeps its
// current degree and the XOR of the indices of its incident edges; when the
// degree drops to 1 the XOR is exactly the one remaining edge.
package hypergraph

import (
	"fmt"

	mpherrors "github.com/tamirms/mphash/errors"
)

// Edge is one key's three vertices, one per coordinate block.
type Edge [3]uint32

// Step records one peeled edge and which of its three vertices (0, 1 or 2)
// was the pivot: the vertex whose degree was 1 when the edge was removed.
type Step struct {
	Edge  uint32
	Pivot uint8
}

// vertexSet is the per-vertex peeling state.
type vertexSet struct {
	degree uint32
	edges  uint32 // XOR of incident edge indices
}

// Peeler holds reusable scratch for repeated peel attempts.
//
// A Peeler is NOT safe for concurrent use. Buffers are retained across
// calls so a retry loop does not reallocate per attempt.
type Peeler struct {
	sets  []vertexSet
	queue []uint32
	order []Step
}

// NewPeeler creates a Peeler. Buffers grow on first use.
func NewPeeler() *Peeler {
	return &Peeler{}
}

// Peel attempts to find a full elimination order for edges over
// numVertices vertices. The three vertices of an edge must be distinct.
//
// On success the returned order lists every edge exactly once, in peel
// order. The slice aliases the Peeler's buffer and is only valid until the
// next call. On failure it returns ErrCycleDetected and no partial order.
// Runs in O(numVertices + len(edges)) for both outcomes.
func (p *Peeler) Peel(edges []Edge, numVertices uint32) ([]Step, error) {
	p.reset(numVertices, len(edges))

	for i, e := range edges {
		if e[0] == e[1] || e[0] == e[2] || e[1] == e[2] {
			return nil, fmt.Errorf("hypergraph: edge %d repeats a vertex: %v", i, e)
		}
		for _, v := range e {
			if v >= numVertices {
				return nil, fmt.Errorf("hypergraph: edge %d vertex %d outside [0, %d)", i, v, numVertices)
			}
			p.sets[v].degree++
			p.sets[v].edges ^= uint32(i)
		}
	}

	for v := range p.sets {
		if p.sets[v].degree == 1 {
			p.queue = append(p.queue, uint32(v))
		}
	}

	for len(p.queue) > 0 {
		v := p.queue[len(p.queue)-1]
		p.queue = p.queue[:len(p.queue)-1]

		// The vertex may have lost its last edge after it was queued.
		if p.sets[v].degree != 1 {
			continue
		}

		ei := p.sets[v].edges
		e := edges[ei]
		var pivot uint8
		for c, u := range e {
			if u == v {
				pivot = uint8(c)
			}
			p.sets[u].degree--
			p.sets[u].edges ^= ei
			if p.sets[u].degree == 1 {
				p.queue = append(p.queue, u)
			}
		}
		p.order = append(p.order, Step{Edge: ei, Pivot: pivot})
	}

	if len(p.order) != len(edges) {
		return nil, mpherrors.ErrCycleDetected
	}
	return p.order, nil
}

// reset sizes and clears the scratch buffers.
func (p *Peeler) reset(numVertices uint32, numEdges int) {
	if cap(p.sets) < int(numVertices) {
		p.sets = make([]vertexSet, numVertices)
	} else {
		p.sets = p.sets[:numVertices]
		clear(p.sets)
	}
	if cap(p.order) < numEdges {
		p.order = make([]Step, 0, numEdges)
	}
	p.order = p.order[:0]
	p.queue = p.queue[:0]
}
