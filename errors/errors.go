// Package errors defines all exported error sentinels for the mphash library.
//
// This is the single source of truth for error values. The top-level mphash
// package, the cgen emitter and the internal construction packages all
// import from here, so errors.Is checks work across package boundaries.
package errors

import "errors"

// Build errors
var (
	ErrEmptyKeySet        = errors.New("mphash: cannot build a hash function over zero keys")
	ErrTooManyKeys        = errors.New("mphash: key count exceeds maximum (2^30)")
	ErrDuplicateKey       = errors.New("mphash: duplicate key detected")
	ErrConstructionFailed = errors.New("mphash: construction failed within the attempt budget")
	ErrValueTooLarge      = errors.New("mphash: table data exceeds 4 GiB")
)

// Construction errors. ErrCycleDetected is normally recovered internally by
// resalting; it only surfaces wrapped in ErrConstructionFailed.
var (
	ErrCycleDetected  = errors.New("mphash: hypergraph is not peelable for this salt set")
	ErrRangeExhausted = errors.New("mphash: repeated peel failures at a fixed range")
	ErrNotBijective   = errors.New("mphash: codes are not a bijection onto [0, n)")
	ErrRangeTooLarge  = errors.New("mphash: range exceeds the 32-bit vertex index space")
)

// Image errors
var (
	ErrInvalidMagic   = errors.New("mphash: invalid magic number")
	ErrInvalidVersion = errors.New("mphash: unsupported version")
	ErrChecksumFailed = errors.New("mphash: file checksum verification failed")
	ErrTruncatedFile  = errors.New("mphash: parameter file is truncated")
	ErrCorruptedIndex = errors.New("mphash: parameter data is corrupted")
)

// Query errors
var (
	ErrIndexClosed = errors.New("mphash: index is closed")
	ErrNotTable    = errors.New("mphash: parameter file holds no value table")
	ErrNotFound    = errors.New("mphash: key not found")
)

// Emitter errors
var (
	ErrInvalidMode = errors.New("mphash: invalid artifact mode")
	ErrInvalidName = errors.New("mphash: symbol name is not a C identifier")
)
