package mphash

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	mpherrors "github.com/tamirms/mphash/errors"
)

// verifyChunk is the number of keys a worker hashes between context checks.
const verifyChunk = 1 << 14

// Verify checks that m maps keys bijectively onto [0, m.Len()). Keys are
// hashed by up to workers goroutines (GOMAXPROCS when workers <= 0); the
// uniqueness check itself is sequential.
//
// It returns an error wrapping ErrNotBijective naming the first offending
// key position, or ctx.Err() if cancelled.
func Verify(ctx context.Context, m *MPHF, keys [][]byte, workers int) error {
	if len(keys) != m.Len() {
		return fmt.Errorf("%w: %d keys for a function over %d", mpherrors.ErrNotBijective, len(keys), m.Len())
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	codes := make([]uint32, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(keys); start += verifyChunk {
		end := min(start+verifyChunk, len(keys))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				codes[i] = m.Hash(keys[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	n := uint32(len(keys))
	owner := make([]int32, n)
	for i := range owner {
		owner[i] = -1
	}
	for i, c := range codes {
		if c >= n {
			return fmt.Errorf("%w: key %d has code %d", mpherrors.ErrNotBijective, i, c)
		}
		if owner[c] >= 0 {
			return fmt.Errorf("%w: keys %d and %d share code %d", mpherrors.ErrNotBijective, owner[c], i, c)
		}
		owner[c] = int32(i)
	}
	return nil
}
