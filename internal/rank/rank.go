// Package rank builds and queries the two-level rank directory over a
// packed g-array. rank(p) is the number of marked (non-sentinel) vertices
// in [0, p); for a key's home vertex it is the key's dense code.
//
// Layout:
//
//	ranking[i]               marked vertices in [0, (i+1)*BlockSize)
//	ranking_small[i*S + j-1] marked vertices in [i*BlockSize, i*BlockSize + j*SmallBlockSize)
//	                         for j in [1, BlockSize/SmallBlockSize), S = SmallPerBlock
//
// The remaining < SmallBlockSize vertices are counted with one masked
// popcount over a single g word, so SmallBlockSize equals the number of
// codes per word.
package rank

import (
	"github.com/tamirms/mphash/internal/bits"
	"github.com/tamirms/mphash/internal/garray"
)

const (
	// BlockSize is the vertex span of one ranking entry.
	BlockSize = 256

	// SmallBlockSize is the vertex span of one ranking_small entry.
	SmallBlockSize = bits.CodesPerWord

	// SmallPerBlock is the number of stored sub-block counts per block.
	// Sub-block 0 always starts at the block's own count and is not stored.
	SmallPerBlock = BlockSize/SmallBlockSize - 1
)

// The largest stored sub-block count is BlockSize - SmallBlockSize, which
// must fit the byte-wide ranking_small entries.
var _ = [1]struct{}{}[(BlockSize-SmallBlockSize)/256]

// Tables holds both levels of the directory.
type Tables struct {
	Ranking      []uint32
	RankingSmall []uint8
}

// NumBlocks returns ceil(numVertices / BlockSize).
func NumBlocks(numVertices uint32) int {
	return int((uint64(numVertices) + BlockSize - 1) / BlockSize)
}

// Build computes the directory for g.
func Build(g *garray.Array) Tables {
	nv := g.Len()
	nb := NumBlocks(nv)
	t := Tables{
		Ranking:      make([]uint32, nb),
		RankingSmall: make([]uint8, nb*SmallPerBlock),
	}

	var total uint32
	for blk := 0; blk < nb; blk++ {
		var inBlock uint32
		start := uint32(blk) * BlockSize
		for sb := 0; sb < BlockSize/SmallBlockSize; sb++ {
			if sb > 0 {
				t.RankingSmall[blk*SmallPerBlock+sb-1] = uint8(inBlock)
			}
			for j := uint32(0); j < SmallBlockSize; j++ {
				v := start + uint32(sb)*SmallBlockSize + j
				if v < nv && g.Marked(v) {
					inBlock++
				}
			}
		}
		total += inBlock
		t.Ranking[blk] = total
	}
	return t
}

// Rank returns the number of marked vertices in [0, p) using only table
// lookups and one popcount. words are the packed g-array words; p must be
// below the vertex count the tables were built for.
func Rank(words []uint32, t *Tables, p uint32) uint32 {
	a := p / BlockSize
	b := p % BlockSize
	c := b % SmallBlockSize
	b /= SmallBlockSize

	var r uint32
	if a != 0 {
		r = t.Ranking[a-1]
	}
	if b != 0 {
		r += uint32(t.RankingSmall[a*SmallPerBlock+b-1])
	}
	if c != 0 {
		r += bits.MarkedPrefix(words[p/bits.CodesPerWord], c)
	}
	return r
}
