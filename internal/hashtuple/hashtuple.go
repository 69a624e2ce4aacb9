// Package hashtuple maps a key to its three hypergraph vertices.
//
// Each coordinate uses MurmurHash3 x86_32 seeded with its own salt. The
// emitted C decode routine reimplements the same function, so any change
// here must be mirrored in the cgen package.
package hashtuple

import (
	"math/rand/v2"

	"github.com/spaolacci/murmur3"
)

// Salts parameterizes the three coordinate hashes.
type Salts [3]uint32

// Tuple holds a key's vertices: Tuple[i] lies in [i*R, (i+1)*R).
type Tuple [3]uint32

// Hash32 is the salted mixing hash.
func Hash32(key []byte, salt uint32) uint32 {
	return murmur3.Sum32WithSeed(key, salt)
}

// Hashes computes the vertex tuple of key for range r (r > 0).
func Hashes(key []byte, r uint32, s Salts) Tuple {
	return Tuple{
		Hash32(key, s[0]) % r,
		Hash32(key, s[1])%r + r,
		Hash32(key, s[2])%r + 2*r,
	}
}

// SaltSource generates whole salt triples.
//
// Reseed restarts the sequence, so builds sharing a seed draw identical
// triples.
// A SaltSource is NOT safe for concurrent use.
type SaltSource struct {
	seed  uint64
	rng   *rand.Rand
	drawn int
}

// saltStreamKey decorrelates the two PCG state words derived from one seed.
const saltStreamKey = 0x9e3779b97f4a7c15

// NewSaltSource returns a source positioned at the start of seed's sequence.
func NewSaltSource(seed uint64) *SaltSource {
	s := &SaltSource{}
	s.Reseed(seed)
	return s
}

// Reseed restarts the sequence from seed.
func (s *SaltSource) Reseed(seed uint64) {
	s.seed = seed
	s.rng = rand.New(rand.NewPCG(seed, seed^saltStreamKey))
	s.drawn = 0
}

// Next draws a fresh triple. All three salts are replaced together; a
// triple never shares state with the previous one beyond the generator.
func (s *SaltSource) Next() Salts {
	s.drawn++
	return Salts{s.rng.Uint32(), s.rng.Uint32(), s.rng.Uint32()}
}

// Seed returns the seed of the current sequence.
func (s *SaltSource) Seed() uint64 {
	return s.seed
}

// Drawn returns how many triples were drawn since the last Reseed.
func (s *SaltSource) Drawn() int {
	return s.drawn
}
