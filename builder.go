package mphash

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	mpherrors "github.com/tamirms/mphash/errors"
	"github.com/tamirms/mphash/internal/garray"
	"github.com/tamirms/mphash/internal/hashtuple"
	"github.com/tamirms/mphash/internal/hypergraph"
	"github.com/tamirms/mphash/internal/rank"
)

// Build constructs a minimal perfect hash function over keys.
//
// Keys must be distinct; a duplicate fails with ErrDuplicateKey before any
// construction work. The keys are not retained: the returned MPHF maps each
// of them to a distinct code in [0, len(keys)), and maps any other input to
// an unspecified code.
//
// Construction repeatedly draws a salt triple and tries to peel the
// resulting hypergraph. Attempts are not interruptible, but ctx is checked
// before each one. Use WithMaxAttempts to impose a budget.
//
// Usage:
//
//	m, err := mphash.Build(ctx, keys)
//	if err != nil { return err }
//	code := m.Hash(keys[0]) // in [0, len(keys))
func Build(ctx context.Context, keys [][]byte, opts ...BuildOption) (*MPHF, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return build(ctx, keys, cfg)
}

// build runs the construction loop with a resolved configuration.
func build(ctx context.Context, keys [][]byte, cfg *buildConfig) (*MPHF, error) {
	n := len(keys)
	if n == 0 {
		return nil, mpherrors.ErrEmptyKeySet
	}
	if n > maxKeys {
		return nil, mpherrors.ErrTooManyKeys
	}
	if err := checkDuplicates(keys); err != nil {
		return nil, err
	}

	src := cfg.saltSource
	if src == nil {
		src = hashtuple.NewSaltSource(cfg.seed)
	}

	c := &construction{
		keys:   keys,
		edges:  make([]hypergraph.Edge, n),
		peeler: hypergraph.NewPeeler(),
	}

	r, err := cfg.initialRange(n)
	if err != nil {
		return nil, err
	}
	log := cfg.logger
	attempts, atRange := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cfg.maxAttempts > 0 && attempts >= cfg.maxAttempts {
			return nil, fmt.Errorf("%w: %d attempts, last range %d: %w",
				mpherrors.ErrConstructionFailed, attempts, r, mpherrors.ErrCycleDetected)
		}

		salts := src.Next()
		attempts++
		atRange++

		m, err := c.attempt(r, salts)
		if err == nil {
			m.attempts = attempts
			log.Debug("mphf built",
				zap.Int("keys", n),
				zap.Uint32("range", r),
				zap.Int("attempts", attempts),
				zap.Float64("bitsPerKey", m.BitsPerKey()))
			return m, nil
		}
		if !errors.Is(err, mpherrors.ErrCycleDetected) {
			return nil, err
		}
		log.Debug("peel failed, resalting",
			zap.Int("attempt", attempts),
			zap.Uint32("range", r),
			zap.Uint32s("salts", salts[:]))

		if atRange >= resaltsPerRange {
			if !cfg.rangeGrowth || r == MaxRange {
				return nil, fmt.Errorf("%w: range %d failed %d consecutive attempts",
					mpherrors.ErrRangeExhausted, r, atRange)
			}
			next := growRange(r)
			log.Debug("enlarging range", zap.Uint32("from", r), zap.Uint32("to", next))
			r = next
			atRange = 0
		}
	}
}

// initialRange returns the per-coordinate range for n keys:
// ceil(overprovision * n / 3) + 1, unless overridden.
func (c *buildConfig) initialRange(n int) (uint32, error) {
	if c.rangeOverride > 0 {
		if c.rangeOverride > MaxRange {
			return 0, fmt.Errorf("%w: range %d, max %d", mpherrors.ErrRangeTooLarge, c.rangeOverride, MaxRange)
		}
		return c.rangeOverride, nil
	}
	r := math.Ceil(c.overprovision*float64(n)/3) + 1
	if r > MaxRange {
		return 0, fmt.Errorf("%w: overprovision %g over %d keys", mpherrors.ErrRangeTooLarge, c.overprovision, n)
	}
	return uint32(r), nil
}

// growRange enlarges r by 5%, at least by one, up to MaxRange.
func growRange(r uint32) uint32 {
	step := r / 20
	if step == 0 {
		step = 1
	}
	return uint32(min(uint64(r)+uint64(step), MaxRange))
}

// construction holds the per-build scratch reused across attempts.
// It is NOT safe for concurrent use.
type construction struct {
	keys   [][]byte
	edges  []hypergraph.Edge
	peeler *hypergraph.Peeler
}

// attempt hashes every key with salts, peels, and on success assigns the
// g-array and rank tables. Failure leaves nothing behind but scratch.
func (c *construction) attempt(r uint32, salts hashtuple.Salts) (*MPHF, error) {
	for i, k := range c.keys {
		c.edges[i] = hypergraph.Edge(hashtuple.Hashes(k, r, salts))
	}

	numVertices := 3 * r
	order, err := c.peeler.Peel(c.edges, numVertices)
	if err != nil {
		return nil, err
	}

	g := garray.Assign(c.edges, order, numVertices)
	tables := rank.Build(g)
	return &MPHF{
		n:      uint32(len(c.keys)),
		rng:    r,
		salts:  salts,
		g:      g.Words(),
		tables: tables,
	}, nil
}
