package mphash

import (
	"fmt"

	mpherrors "github.com/tamirms/mphash/errors"
	"github.com/tamirms/mphash/internal/garray"
	"github.com/tamirms/mphash/internal/hashtuple"
	"github.com/tamirms/mphash/internal/hypergraph"
	"github.com/tamirms/mphash/internal/rank"
)

// Rank directory geometry shared by the Go decoder, the binary image and
// emitted C code.
const (
	RankBlockSize      = rank.BlockSize
	RankSmallBlockSize = rank.SmallBlockSize
	RankSmallPerBlock  = rank.SmallPerBlock
)

// MPHF is a built minimal perfect hash function. It is immutable and safe
// for concurrent use.
type MPHF struct {
	n        uint32
	rng      uint32
	salts    hashtuple.Salts
	g        []uint32
	tables   rank.Tables
	attempts int
}

// Params is the complete data description of an MPHF: everything needed to
// evaluate it, and nothing else. Slices are shared with the MPHF.
type Params struct {
	N            uint32
	Range        uint32
	Salts        [3]uint32
	G            []uint32 // 3*Range 2-bit codes, 16 per word
	Ranking      []uint32
	RankingSmall []uint8
}

// Hash returns the code of key. For a key of the build set the code is in
// [0, Len()) and distinct from every other member's. For any other key the
// result is unspecified but never panics; it may fall outside [0, Len()).
func (m *MPHF) Hash(key []byte) uint32 {
	e := hypergraph.Edge(hashtuple.Hashes(key, m.rng, m.salts))
	home := garray.Home(m.g, e)
	return rank.Rank(m.g, &m.tables, home)
}

// Len returns the number of keys the function was built over.
func (m *MPHF) Len() int {
	return int(m.n)
}

// Range returns the per-coordinate range R; the hypergraph has 3R vertices.
func (m *MPHF) Range() uint32 {
	return m.rng
}

// Salts returns the salt triple of the successful attempt.
func (m *MPHF) Salts() [3]uint32 {
	return m.salts
}

// Attempts returns how many salt triples the build tried. It is zero for
// functions reconstructed from parameters.
func (m *MPHF) Attempts() int {
	return m.attempts
}

// SizeBytes returns the in-memory size of the lookup data.
func (m *MPHF) SizeBytes() int {
	return 4*len(m.g) + 4*len(m.tables.Ranking) + len(m.tables.RankingSmall) + 16
}

// BitsPerKey returns SizeBytes in bits divided by the key count.
func (m *MPHF) BitsPerKey() float64 {
	if m.n == 0 {
		return 0
	}
	return float64(m.SizeBytes()*8) / float64(m.n)
}

// Params returns the function's data description.
func (m *MPHF) Params() Params {
	return Params{
		N:            m.n,
		Range:        m.rng,
		Salts:        m.salts,
		G:            m.g,
		Ranking:      m.tables.Ranking,
		RankingSmall: m.tables.RankingSmall,
	}
}

// NewFromParams reconstructs an MPHF from its data description, validating
// array sizes so that Hash cannot index out of bounds. Slices are not copied.
func NewFromParams(p Params) (*MPHF, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &MPHF{
		n:     p.N,
		rng:   p.Range,
		salts: p.Salts,
		g:     p.G,
		tables: rank.Tables{
			Ranking:      p.Ranking,
			RankingSmall: p.RankingSmall,
		},
	}, nil
}

func (p *Params) validate() error {
	if p.N == 0 || p.Range == 0 {
		return fmt.Errorf("%w: n=%d range=%d", mpherrors.ErrCorruptedIndex, p.N, p.Range)
	}
	if p.Range > MaxRange {
		return fmt.Errorf("%w: range %d overflows vertex indices", mpherrors.ErrCorruptedIndex, p.Range)
	}
	nv := 3 * p.Range
	if want := garray.WordCount(nv); len(p.G) != want {
		return fmt.Errorf("%w: g has %d words, want %d", mpherrors.ErrCorruptedIndex, len(p.G), want)
	}
	nb := rank.NumBlocks(nv)
	if len(p.Ranking) != nb {
		return fmt.Errorf("%w: ranking has %d entries, want %d", mpherrors.ErrCorruptedIndex, len(p.Ranking), nb)
	}
	if len(p.RankingSmall) != nb*rank.SmallPerBlock {
		return fmt.Errorf("%w: ranking_small has %d entries, want %d",
			mpherrors.ErrCorruptedIndex, len(p.RankingSmall), nb*rank.SmallPerBlock)
	}
	if p.Ranking[nb-1] != p.N {
		return fmt.Errorf("%w: ranking total %d, want %d", mpherrors.ErrCorruptedIndex, p.Ranking[nb-1], p.N)
	}
	return nil
}
