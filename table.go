package mphash

import (
	"bytes"
	"context"
	"fmt"
	"math"

	mpherrors "github.com/tamirms/mphash/errors"
)

// Pair is one entry of an associative table.
type Pair struct {
	Key   []byte
	Value []byte
}

// Table is a static associative table indexed by an MPHF. Values are
// stored contiguously in code order with an offset table; keys are stored
// the same way unless key verification is disabled.
//
// A Table is immutable and safe for concurrent use.
type Table struct {
	m            *MPHF
	values       []byte
	valueOffsets []uint32 // n+1 entries; value i is values[off[i]:off[i+1]]
	keys         []byte   // nil without key verification
	keyOffsets   []uint32
}

// TableData is the flattened description of a Table, ordered by code.
// Slices are shared with the Table.
type TableData struct {
	MPHF         Params
	Values       []byte
	ValueOffsets []uint32
	Keys         []byte   // nil without key verification
	KeyOffsets   []uint32 // nil without key verification
}

// BuildTable builds an MPHF over the pair keys and lays the values out by
// code. Keys must be distinct. Total value (and stored key) bytes must fit
// 32-bit offsets, otherwise ErrValueTooLarge.
func BuildTable(ctx context.Context, pairs []Pair, opts ...BuildOption) (*Table, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	keys := make([][]byte, len(pairs))
	var valueBytes, keyBytes uint64
	for i, p := range pairs {
		keys[i] = p.Key
		valueBytes += uint64(len(p.Value))
		keyBytes += uint64(len(p.Key))
	}
	if valueBytes > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d value bytes", mpherrors.ErrValueTooLarge, valueBytes)
	}
	if cfg.keyVerify && keyBytes > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d key bytes", mpherrors.ErrValueTooLarge, keyBytes)
	}

	m, err := build(ctx, keys, cfg)
	if err != nil {
		return nil, err
	}

	byCode := make([]int, len(pairs))
	for i, k := range keys {
		byCode[m.Hash(k)] = i
	}

	t := &Table{
		m:            m,
		values:       make([]byte, 0, valueBytes),
		valueOffsets: make([]uint32, 1, len(pairs)+1),
	}
	if cfg.keyVerify {
		t.keys = make([]byte, 0, keyBytes)
		t.keyOffsets = make([]uint32, 1, len(pairs)+1)
	}
	for _, i := range byCode {
		t.values = append(t.values, pairs[i].Value...)
		t.valueOffsets = append(t.valueOffsets, uint32(len(t.values)))
		if cfg.keyVerify {
			t.keys = append(t.keys, pairs[i].Key...)
			t.keyOffsets = append(t.keyOffsets, uint32(len(t.keys)))
		}
	}
	return t, nil
}

// newTableFromData validates offset tables against the MPHF and wraps the
// slices without copying.
func newTableFromData(m *MPHF, d TableData) (*Table, error) {
	if err := checkOffsets(d.ValueOffsets, m.n, len(d.Values)); err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	if d.KeyOffsets != nil {
		if err := checkOffsets(d.KeyOffsets, m.n, len(d.Keys)); err != nil {
			return nil, fmt.Errorf("keys: %w", err)
		}
	}
	return &Table{
		m:            m,
		values:       d.Values,
		valueOffsets: d.ValueOffsets,
		keys:         d.Keys,
		keyOffsets:   d.KeyOffsets,
	}, nil
}

// checkOffsets requires n+1 non-decreasing offsets starting at 0 and ending
// at size.
func checkOffsets(off []uint32, n uint32, size int) error {
	if len(off) != int(n)+1 {
		return fmt.Errorf("%w: %d offsets for %d entries", mpherrors.ErrCorruptedIndex, len(off), n)
	}
	if off[0] != 0 || int(off[n]) != size {
		return fmt.Errorf("%w: offsets span [%d, %d), data is %d bytes",
			mpherrors.ErrCorruptedIndex, off[0], off[n], size)
	}
	for i := 1; i < len(off); i++ {
		if off[i] < off[i-1] {
			return fmt.Errorf("%w: offset %d decreases", mpherrors.ErrCorruptedIndex, i)
		}
	}
	return nil
}

// Lookup returns the value stored for key. With key verification (the
// default) an absent key reports false; without it, an absent key may
// return some other entry's value.
func (t *Table) Lookup(key []byte) ([]byte, bool) {
	code := t.m.Hash(key)
	if code >= t.m.n {
		return nil, false
	}
	if t.keyOffsets != nil && !bytes.Equal(t.keys[t.keyOffsets[code]:t.keyOffsets[code+1]], key) {
		return nil, false
	}
	return t.values[t.valueOffsets[code]:t.valueOffsets[code+1]:t.valueOffsets[code+1]], true
}

// MPHF returns the function indexing the table.
func (t *Table) MPHF() *MPHF {
	return t.m
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return t.m.Len()
}

// VerifiesKeys reports whether the table stores its keys.
func (t *Table) VerifiesKeys() bool {
	return t.keyOffsets != nil
}

// Data returns the table's flattened description.
func (t *Table) Data() TableData {
	return TableData{
		MPHF:         t.m.Params(),
		Values:       t.values,
		ValueOffsets: t.valueOffsets,
		Keys:         t.keys,
		KeyOffsets:   t.keyOffsets,
	}
}
