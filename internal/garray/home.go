package garray

import (
	"github.com/tamirms/mphash/internal/bits"
	"github.com/tamirms/mphash/internal/hypergraph"
)

// Home returns the vertex of e selected by the packed codes in words.
// It is the allocation-free form of Array.Select used on the decode path.
func Home(words []uint32, e hypergraph.Edge) uint32 {
	sum := uint32(bits.Code(words[e[0]/bits.CodesPerWord], e[0]%bits.CodesPerWord)) +
		uint32(bits.Code(words[e[1]/bits.CodesPerWord], e[1]%bits.CodesPerWord)) +
		uint32(bits.Code(words[e[2]/bits.CodesPerWord], e[2]%bits.CodesPerWord))
	return e[sum%3]
}
