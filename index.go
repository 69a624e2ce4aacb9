package mphash

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	mpherrors "github.com/tamirms/mphash/errors"
)

// minFileSize is the smallest possible image: header, one g word, one
// ranking entry, its sub-block counts padded to 4, and the footer.
const minFileSize = headerSize + 4 + 4 + (RankSmallPerBlock+3)&^3 + footerSize

// Index is a read-only parameter image opened for querying.
//
// g and the rank tables are copied into memory at open, so the MPHF owns
// its data; table values and keys are served directly from the mapping.
//
// Thread Safety:
//   - Hash, Lookup and other read methods are safe for concurrent use
//   - Close must only be called after all queries have completed
//   - After Close returns, no methods may be called on the Index
type Index struct {
	// Memory map (no file handle needed after mmap)
	mmap mmap.MMap
	data []byte

	header *header
	layout layout

	m     *MPHF
	table *Table // nil for function-only images

	closed atomic.Bool
}

// Stats holds image statistics.
type Stats struct {
	NumKeys      uint32
	Range        uint32
	Table        bool
	VerifiesKeys bool
	BitsPerKey   float64 // whole image
	IndexSize    int64
}

// Open opens a parameter image for querying.
// It opens the file, memory-maps it, and closes the file descriptor.
func Open(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parameter file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile opens a parameter image by memory-mapping f.
// The caller is responsible for closing f; it may be closed as soon as
// OpenFile returns.
func OpenFile(f *os.File) (*Index, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parameter file: %w", err)
	}
	fileSize := stat.Size()

	if fileSize < int64(minFileSize) {
		return nil, mpherrors.ErrTruncatedFile
	}

	fadviseSequential(int(f.Fd()), 0, fileSize)
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap parameter file: %w", err)
	}

	idx := &Index{
		mmap: mm,
		data: []byte(mm),
	}
	if err := idx.initFromData(); err != nil {
		return nil, errors.Join(err, idx.Close())
	}
	return idx, nil
}

// OpenBytes creates an Index from an in-memory image.
// No file is opened or memory-mapped; Close is a no-op.
// The caller must ensure data is not modified while the Index is in use.
func OpenBytes(data []byte) (*Index, error) {
	if len(data) < minFileSize {
		return nil, mpherrors.ErrTruncatedFile
	}
	idx := &Index{
		data: data,
	}
	if err := idx.initFromData(); err != nil {
		return nil, err
	}
	return idx, nil
}

// initFromData parses the header and rebuilds the function and table.
// Footer checksums are not checked here; see Verify.
func (idx *Index) initFromData() error {
	hdr, err := decodeHeader(idx.data[:headerSize])
	if err != nil {
		return err
	}
	idx.header = hdr
	l := hdr.computeLayout()
	idx.layout = l

	// fileSize >= minFileSize > footerSize, so no underflow.
	fileSize := uint64(len(idx.data))
	if l.tableEnd > fileSize-footerSize {
		return mpherrors.ErrTruncatedFile
	}
	if l.tableEnd != fileSize-footerSize {
		return fmt.Errorf("%w: %d trailing bytes", mpherrors.ErrCorruptedIndex, fileSize-footerSize-l.tableEnd)
	}

	nb := (l.rankingSmall - l.ranking) / 4
	idx.m, err = NewFromParams(Params{
		N:            hdr.NumKeys,
		Range:        hdr.Range,
		Salts:        hdr.Salts,
		G:            readWords(idx.data[l.g:l.ranking]),
		Ranking:      readWords(idx.data[l.ranking:l.rankingSmall]),
		RankingSmall: bytes.Clone(idx.data[l.rankingSmall : l.rankingSmall+nb*RankSmallPerBlock]),
	})
	if err != nil {
		return err
	}

	if !hdr.isTable() {
		return nil
	}
	d := TableData{
		ValueOffsets: readWords(idx.data[l.valueOffsets:l.keyOffsets]),
		Values:       idx.data[l.values:l.keys],
	}
	if hdr.hasKeys() {
		d.KeyOffsets = readWords(idx.data[l.keyOffsets:l.values])
		d.Keys = idx.data[l.keys:l.tableEnd]
	}
	idx.table, err = newTableFromData(idx.m, d)
	return err
}

func readWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return words
}

// Close closes the index and releases resources.
func (idx *Index) Close() error {
	if idx.closed.Swap(true) {
		return nil // Already closed
	}

	if idx.mmap != nil {
		return idx.mmap.Unmap()
	}
	return nil
}

// Hash returns the code of key; see MPHF.Hash.
func (idx *Index) Hash(key []byte) (uint32, error) {
	if idx.closed.Load() {
		return 0, mpherrors.ErrIndexClosed
	}
	return idx.m.Hash(key), nil
}

// Lookup returns the value stored for key. The slice aliases the mapping
// and must not be used after Close.
// Returns ErrNotTable for function-only images and ErrNotFound for keys
// rejected by the table.
func (idx *Index) Lookup(key []byte) ([]byte, error) {
	if idx.closed.Load() {
		return nil, mpherrors.ErrIndexClosed
	}
	if idx.table == nil {
		return nil, mpherrors.ErrNotTable
	}
	v, ok := idx.table.Lookup(key)
	if !ok {
		return nil, mpherrors.ErrNotFound
	}
	return v, nil
}

// MPHF returns the function stored in the image. It stays valid after
// Close.
func (idx *Index) MPHF() *MPHF {
	return idx.m
}

// Table returns the image's table, or nil for function-only images.
// Its values alias the mapping and must not be used after Close.
func (idx *Index) Table() *Table {
	return idx.table
}

// Len returns the number of keys.
func (idx *Index) Len() int {
	return int(idx.header.NumKeys)
}

// IsTable reports whether the image stores values.
func (idx *Index) IsTable() bool {
	return idx.header.isTable()
}

// GetStats returns statistics for an image file.
func GetStats(path string) (*Stats, error) {
	idx, err := Open(path)
	if err != nil {
		return nil, err
	}

	return idx.Stats(), idx.Close()
}

// Stats returns statistics for the image.
func (idx *Index) Stats() *Stats {
	totalSize := int64(len(idx.data))
	return &Stats{
		NumKeys:      idx.header.NumKeys,
		Range:        idx.header.Range,
		Table:        idx.header.isTable(),
		VerifiesKeys: idx.header.hasKeys(),
		BitsPerKey:   float64(totalSize*8) / float64(idx.header.NumKeys),
		IndexSize:    totalSize,
	}
}

// Verify checks both footer checksums against the image contents.
//
// The footer is decoded on each call rather than at open, so opening only
// touches the regions queries need.
func (idx *Index) Verify() error {
	if idx.closed.Load() {
		return mpherrors.ErrIndexClosed
	}

	ft, err := decodeFooter(idx.data[idx.layout.tableEnd:])
	if err != nil {
		return err
	}
	if xxhash.Sum64(idx.data[:idx.layout.paramsEnd]) != ft.ParamsHash {
		return fmt.Errorf("%w: parameter region", mpherrors.ErrChecksumFailed)
	}
	if xxhash.Sum64(idx.data[idx.layout.paramsEnd:idx.layout.tableEnd]) != ft.TableHash {
		return fmt.Errorf("%w: table region", mpherrors.ErrChecksumFailed)
	}
	return nil
}
