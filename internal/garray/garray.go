// Package garray builds the 2-bit-per-vertex code array ("g-array") that
// turns a peeling order into a decodable function.
//
// For a key with vertices (h0, h1, h2), its home vertex is
// h[(g[h0] + g[h1] + g[h2]) mod 3]. Vertices that are nobody's home hold
// the sentinel 3, which contributes 0 to the sum.
package garray

import (
	"github.com/tamirms/mphash/internal/bits"
	"github.com/tamirms/mphash/internal/hypergraph"
)

// Array is a packed g-array, CodesPerWord codes per uint32 word, least
// significant group first. Codes past Len() are sentinel padding.
type Array struct {
	words []uint32
	n     uint32
}

// New returns an array of n sentinel codes.
func New(n uint32) *Array {
	words := make([]uint32, WordCount(n))
	for i := range words {
		words[i] = 0xFFFFFFFF
	}
	return &Array{words: words, n: n}
}

// WordCount returns ceil(n / CodesPerWord).
func WordCount(n uint32) int {
	return int((uint64(n) + bits.CodesPerWord - 1) / bits.CodesPerWord)
}

// Len returns the number of codes.
func (a *Array) Len() uint32 {
	return a.n
}

// Get returns code i.
func (a *Array) Get(i uint32) uint8 {
	return bits.Code(a.words[i/bits.CodesPerWord], i%bits.CodesPerWord)
}

// Set replaces code i.
func (a *Array) Set(i uint32, v uint8) {
	w := &a.words[i/bits.CodesPerWord]
	*w = bits.WithCode(*w, i%bits.CodesPerWord, v)
}

// Words returns the packed words. The slice is shared, not copied.
func (a *Array) Words() []uint32 {
	return a.words
}

// Marked reports whether vertex i is some key's home.
func (a *Array) Marked(i uint32) bool {
	return a.Get(i) != bits.Sentinel
}

// Select returns which of the tuple's vertices (0, 1 or 2) the codes pick.
func (a *Array) Select(e hypergraph.Edge) uint32 {
	sum := uint32(a.Get(e[0])) + uint32(a.Get(e[1])) + uint32(a.Get(e[2]))
	return sum % 3
}

// Assign fills a fresh array of numVertices codes from a complete peeling
// order over edges.
//
// Steps are processed in reverse. When a step is reached, its two
// non-pivot vertices are final: any edge peeled after it does not touch
// them as a pivot, and edges peeled before it only ever write their own
// pivots, which this edge cannot contain. The pivot therefore gets the
// unique d in {0,1,2} with (d + g[other1] + g[other2]) mod 3 == pivot index.
func Assign(edges []hypergraph.Edge, order []hypergraph.Step, numVertices uint32) *Array {
	g := New(numVertices)
	for i := len(order) - 1; i >= 0; i-- {
		st := order[i]
		e := edges[st.Edge]
		var others uint32
		for c, v := range e {
			if uint8(c) != st.Pivot {
				others += uint32(g.Get(v) % 3)
			}
		}
		d := (uint32(st.Pivot) + 3 - others%3) % 3
		g.Set(e[st.Pivot], uint8(d))
	}
	return g
}
