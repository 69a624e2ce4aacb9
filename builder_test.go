package mphash

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	mpherrors "github.com/tamirms/mphash/errors"
	"github.com/tamirms/mphash/internal/hashtuple"
)

func TestBuildSmallSet(t *testing.T) {
	keys := StringKeys([]string{"foo", "bar", "baz"})
	m, err := Build(context.Background(), keys)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}
	checkBijection(t, m, keys)
	if m.Attempts() < 1 {
		t.Errorf("Attempts = %d, want >= 1", m.Attempts())
	}
}

func TestBuildRandomStrings(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateStringKeys(rng, 1000)
	m, err := Build(context.Background(), keys)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	checkBijection(t, m, keys)
	// A 1.23 overprovisioned range peels on the first few attempts.
	if m.Attempts() > 32 {
		t.Errorf("Attempts = %d, expected a handful", m.Attempts())
	}
}

func TestBuildSizes(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 16, 255, 256, 257, 1000, 20000} {
		t.Run("", func(t *testing.T) {
			rng := newTestRNG(t)
			keys := generateRandomKeys(rng, n, 8+rng.IntN(24))
			m, err := Build(context.Background(), keys)
			if err != nil {
				t.Fatalf("n=%d: Build: %v", n, err)
			}
			checkBijection(t, m, keys)

			wantRange := m.Params().Range
			if 3*uint64(wantRange) < uint64(n) {
				t.Errorf("n=%d: range %d too small", n, wantRange)
			}
		})
	}
}

func TestBuildEmptyKeys(t *testing.T) {
	_, err := Build(context.Background(), nil)
	if !errors.Is(err, mpherrors.ErrEmptyKeySet) {
		t.Fatalf("err = %v, want ErrEmptyKeySet", err)
	}
}

func TestBuildDuplicateKey(t *testing.T) {
	keys := StringKeys([]string{"foo", "bar", "foo"})
	_, err := Build(context.Background(), keys)
	if !errors.Is(err, mpherrors.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
	if !strings.Contains(err.Error(), "keys 0 and 2") {
		t.Errorf("error %q does not name both positions", err)
	}
}

func TestBuildDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateStringKeys(rng, 5000)

	a, err := Build(context.Background(), keys, WithSeed(42))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(context.Background(), keys, WithSeed(42))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Params(), b.Params()); diff != "" {
		t.Errorf("same seed produced different parameters (-a +b):\n%s", diff)
	}

	c, err := Build(context.Background(), keys, WithSeed(43))
	if err != nil {
		t.Fatal(err)
	}
	if a.Salts() == c.Salts() {
		t.Errorf("seeds 42 and 43 produced the same salts %v", a.Salts())
	}
	checkBijection(t, c, keys)
}

func TestBuildSaltSource(t *testing.T) {
	keys := StringKeys([]string{"alpha", "beta", "gamma", "delta"})
	src := hashtuple.NewSaltSource(7)

	first, err := Build(context.Background(), keys, WithSaltSource(src))
	if err != nil {
		t.Fatal(err)
	}
	drawn := src.Drawn()
	if drawn != first.Attempts() {
		t.Errorf("source drew %d triples for %d attempts", drawn, first.Attempts())
	}

	// A shared source keeps advancing.
	second, err := Build(context.Background(), keys, WithSaltSource(src))
	if err != nil {
		t.Fatal(err)
	}
	if first.Salts() == second.Salts() {
		t.Error("second build reused the first build's salts")
	}

	// Reseeding restarts the sequence.
	src.Reseed(7)
	again, err := Build(context.Background(), keys, WithSaltSource(src))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first.Params(), again.Params()); diff != "" {
		t.Errorf("reseeded build differs (-first +again):\n%s", diff)
	}
}

// With R=1 every key maps to the same three vertices, so more than one
// key can never peel.
func TestBuildMaxAttempts(t *testing.T) {
	keys := StringKeys([]string{"a", "b", "c", "d"})
	_, err := Build(context.Background(), keys, WithRange(1), WithMaxAttempts(5))
	if !errors.Is(err, mpherrors.ErrConstructionFailed) {
		t.Fatalf("err = %v, want ErrConstructionFailed", err)
	}
	if !errors.Is(err, mpherrors.ErrCycleDetected) {
		t.Errorf("err = %v, want it to wrap ErrCycleDetected", err)
	}
}

func TestBuildRangeExhausted(t *testing.T) {
	keys := StringKeys([]string{"a", "b", "c", "d"})
	_, err := Build(context.Background(), keys, WithRange(1), WithRangeGrowth(false))
	if !errors.Is(err, mpherrors.ErrRangeExhausted) {
		t.Fatalf("err = %v, want ErrRangeExhausted", err)
	}
}

func TestBuildRangeGrowth(t *testing.T) {
	keys := StringKeys([]string{"a", "b", "c", "d", "e", "f", "g", "h"})
	m, err := Build(context.Background(), keys, WithRange(1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Range() <= 1 {
		t.Errorf("Range = %d, want growth beyond 1", m.Range())
	}
	if m.Attempts() <= resaltsPerRange {
		t.Errorf("Attempts = %d, want more than %d", m.Attempts(), resaltsPerRange)
	}
	checkBijection(t, m, keys)
}

func TestBuildRangeTooLarge(t *testing.T) {
	keys := StringKeys([]string{"a", "b", "c"})
	tests := []struct {
		name string
		opt  BuildOption
	}{
		{"just above max", WithRange(MaxRange + 1)},
		{"3R wraps", WithRange(0x60000000)},
		{"max uint32", WithRange(math.MaxUint32)},
		{"huge overprovision", WithOverprovision(1e12)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(context.Background(), keys, tc.opt)
			if !errors.Is(err, mpherrors.ErrRangeTooLarge) {
				t.Fatalf("err = %v, want ErrRangeTooLarge", err)
			}
		})
	}
}

func TestGrowRange(t *testing.T) {
	tests := []struct {
		r, want uint32
	}{
		{1, 2},
		{19, 20},
		{100, 105},
		{MaxRange - 1, MaxRange},
		{MaxRange, MaxRange},
	}
	for _, tc := range tests {
		if got := growRange(tc.r); got != tc.want {
			t.Errorf("growRange(%d) = %d, want %d", tc.r, got, tc.want)
		}
	}
}

func TestBuildOverprovision(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 3000, 16)
	m, err := Build(context.Background(), keys, WithOverprovision(2.0))
	if err != nil {
		t.Fatal(err)
	}
	if want := uint32(2001); m.Range() != want {
		t.Errorf("Range = %d, want %d", m.Range(), want)
	}
	checkBijection(t, m, keys)
}

func TestBuildContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, StringKeys([]string{"foo"}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBuildLogsAttempts(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	keys := StringKeys([]string{"a", "b", "c"})
	_, err := Build(context.Background(), keys, WithRange(1), WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	if n := logs.FilterMessage("peel failed, resalting").Len(); n == 0 {
		t.Error("no failed attempts logged")
	}
	if n := logs.FilterMessage("enlarging range").Len(); n == 0 {
		t.Error("no range enlargement logged")
	}
	if n := logs.FilterMessage("mphf built").Len(); n != 1 {
		t.Errorf("%d build summaries logged, want 1", n)
	}
}

func TestNewFromParams(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 1000, 12)
	m, err := Build(context.Background(), keys)
	if err != nil {
		t.Fatal(err)
	}

	again, err := NewFromParams(m.Params())
	if err != nil {
		t.Fatalf("NewFromParams: %v", err)
	}
	for _, k := range keys {
		if got, want := again.Hash(k), m.Hash(k); got != want {
			t.Fatalf("Hash(%x) = %d, want %d", k, got, want)
		}
	}

	bad := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero keys", func(p *Params) { p.N = 0 }},
		{"short g", func(p *Params) { p.G = p.G[:len(p.G)-1] }},
		{"short ranking", func(p *Params) { p.Ranking = p.Ranking[:len(p.Ranking)-1] }},
		{"short ranking_small", func(p *Params) { p.RankingSmall = p.RankingSmall[:len(p.RankingSmall)-1] }},
		{"wrong total", func(p *Params) { p.N++ }},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			p := m.Params()
			p.G = append([]uint32(nil), p.G...)
			tc.mutate(&p)
			if _, err := NewFromParams(p); !errors.Is(err, mpherrors.ErrCorruptedIndex) {
				t.Errorf("err = %v, want ErrCorruptedIndex", err)
			}
		})
	}
}

func TestHashUnknownKeys(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 500, 16)
	m, err := Build(context.Background(), keys)
	if err != nil {
		t.Fatal(err)
	}
	// Any code is acceptable; decoding must only stay in bounds.
	for range 10000 {
		k := make([]byte, rng.IntN(40))
		fillFromRNG(rng, k)
		_ = m.Hash(k)
	}
}
