package mphash

import (
	"go.uber.org/zap"

	"github.com/tamirms/mphash/internal/hashtuple"
)

const (
	// defaultOverprovision is the ratio of vertices (3R) to keys. Random
	// 3-uniform hypergraphs peel with high probability above ~1.222.
	defaultOverprovision = 1.23

	// resaltsPerRange is how many consecutive failed attempts are tolerated
	// at one range before it is enlarged.
	resaltsPerRange = 32

	// MaxRange is the largest per-coordinate range whose 3R vertices fit
	// uint32 indices.
	MaxRange = (1<<32 - 1) / 3
)

// DefaultSeed seeds the salt sequence unless WithSeed or WithSaltSource
// overrides it.
const DefaultSeed uint64 = 0x1234567890abcdef

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	seed          uint64
	saltSource    *hashtuple.SaltSource // overrides seed when set
	overprovision float64
	rangeOverride uint32 // 0 = derive from key count
	maxAttempts   int    // 0 = unbounded
	rangeGrowth   bool
	keyVerify     bool // tables only
	logger        *zap.Logger
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		seed:          DefaultSeed,
		overprovision: defaultOverprovision,
		rangeGrowth:   true,
		keyVerify:     true,
		logger:        zap.NewNop(),
	}
}

// WithSeed sets the seed of the salt sequence. Builds with the same keys
// and seed produce identical parameters.
func WithSeed(seed uint64) BuildOption {
	return func(c *buildConfig) {
		c.seed = seed
	}
}

// WithSaltSource draws salts from src instead of a fresh source seeded by
// WithSeed. The source keeps advancing across builds that share it.
func WithSaltSource(src *hashtuple.SaltSource) BuildOption {
	return func(c *buildConfig) {
		c.saltSource = src
	}
}

// WithOverprovision sets the vertex-to-key ratio used to pick the initial
// range. Values at or below 1 are ignored.
func WithOverprovision(ratio float64) BuildOption {
	return func(c *buildConfig) {
		if ratio > 1 {
			c.overprovision = ratio
		}
	}
}

// WithRange forces the initial per-coordinate range. A range above
// MaxRange fails the build with ErrRangeTooLarge.
func WithRange(r uint32) BuildOption {
	return func(c *buildConfig) {
		c.rangeOverride = r
	}
}

// WithMaxAttempts bounds the number of salt triples tried. Exceeding it
// returns ErrConstructionFailed. Zero means unbounded.
func WithMaxAttempts(n int) BuildOption {
	return func(c *buildConfig) {
		c.maxAttempts = n
	}
}

// WithRangeGrowth controls whether repeated failures at one range enlarge
// it. When disabled, the build returns ErrRangeExhausted instead.
func WithRangeGrowth(enabled bool) BuildOption {
	return func(c *buildConfig) {
		c.rangeGrowth = enabled
	}
}

// WithKeyVerification controls whether a Table stores its keys so that
// lookups of absent keys report not-found. Enabled by default.
func WithKeyVerification(enabled bool) BuildOption {
	return func(c *buildConfig) {
		c.keyVerify = enabled
	}
}

// WithLogger sets the logger for construction diagnostics (Debug level).
func WithLogger(l *zap.Logger) BuildOption {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
