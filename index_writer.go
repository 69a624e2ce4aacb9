package mphash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
)

// imageSource is what an image is written from: the function and, for
// tables, the code-ordered value and key data.
type imageSource struct {
	params Params
	table  *TableData // nil for function-only images
}

func (s *imageSource) header() header {
	h := header{
		Magic:   magic,
		Version: version,
		NumKeys: s.params.N,
		Range:   s.params.Range,
		Salts:   s.params.Salts,
	}
	if s.table != nil {
		h.Flags |= flagTable
		h.ValuesLen = uint32(len(s.table.Values))
		if s.table.KeyOffsets != nil {
			h.Flags |= flagKeys
			h.KeysLen = uint32(len(s.table.Keys))
		}
	}
	return h
}

// size returns the exact image size in bytes.
func (s *imageSource) size() uint64 {
	h := s.header()
	return h.computeLayout().tableEnd + footerSize
}

// encodeTo writes the complete image into buf, which must be exactly
// size() bytes and zeroed.
func (s *imageSource) encodeTo(buf []byte) {
	h := s.header()
	l := h.computeLayout()
	h.encodeTo(buf[:headerSize])

	putWords(buf[l.g:], s.params.G)
	putWords(buf[l.ranking:], s.params.Ranking)
	copy(buf[l.rankingSmall:], s.params.RankingSmall)

	if s.table != nil {
		putWords(buf[l.valueOffsets:], s.table.ValueOffsets)
		if h.hasKeys() {
			putWords(buf[l.keyOffsets:], s.table.KeyOffsets)
		}
		copy(buf[l.values:], s.table.Values)
		copy(buf[l.keys:], s.table.Keys)
	}

	ftr := footer{
		ParamsHash: xxhash.Sum64(buf[:l.paramsEnd]),
		TableHash:  xxhash.Sum64(buf[l.paramsEnd:l.tableEnd]),
	}
	ftr.encodeTo(buf[l.tableEnd:])
}

func putWords(dst []byte, words []uint32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(dst[4*i:], w)
	}
}

// MarshalBinary encodes the function as a parameter image readable by
// OpenBytes.
func (m *MPHF) MarshalBinary() ([]byte, error) {
	src := &imageSource{params: m.Params()}
	buf := make([]byte, src.size())
	src.encodeTo(buf)
	return buf, nil
}

// MarshalBinary encodes the table as a parameter image readable by
// OpenBytes.
func (t *Table) MarshalBinary() ([]byte, error) {
	d := t.Data()
	src := &imageSource{params: d.MPHF, table: &d}
	buf := make([]byte, src.size())
	src.encodeTo(buf)
	return buf, nil
}

// Save atomically writes the function's parameter image to path.
func Save(path string, m *MPHF) error {
	return writeImage(path, &imageSource{params: m.Params()})
}

// SaveTable atomically writes the table's parameter image to path.
func SaveTable(path string, t *Table) error {
	d := t.Data()
	return writeImage(path, &imageSource{params: d.MPHF, table: &d})
}

// writeImage encodes src directly into a memory-mapped temporary file
// next to path and renames it into place. On failure no file is left at
// path and the temporary file is removed.
func writeImage(path string, src *imageSource) error {
	size := src.size()
	af, err := createAtomic(path, int64(size), 0o644)
	if err != nil {
		return err
	}

	mm, err := mmap.MapRegion(af.file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("failed to mmap file: %w", err)
		return errors.Join(primaryErr, af.abort())
	}

	// On Linux 5.14+, uses MADV_POPULATE_WRITE. No-op on other platforms.
	prefaultRegion(mm)
	src.encodeTo(mm)

	// Flush dirty pages to file (ensures writes visible before unmap)
	if err := mm.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, mm.Unmap(), af.abort())
	}
	if err := mm.Unmap(); err != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", err)
		return errors.Join(primaryErr, af.abort())
	}
	return af.commit()
}

// WriteFileAtomic writes data to path through a preallocated temporary
// file in the same directory followed by a rename, so readers observe
// either the previous file or the complete new one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	af, err := createAtomic(path, int64(len(data)), perm)
	if err != nil {
		return err
	}
	if _, err := af.file.WriteAt(data, 0); err != nil {
		primaryErr := fmt.Errorf("write %s: %w", af.file.Name(), err)
		return errors.Join(primaryErr, af.abort())
	}
	return af.commit()
}

// atomicFile is a temporary file destined to replace target.
type atomicFile struct {
	file   *os.File
	target string
}

// createAtomic creates the temporary file and preallocates size bytes to
// surface disk-full before any data is written.
func createAtomic(target string, size int64, perm os.FileMode) (*atomicFile, error) {
	dir, base := filepath.Split(target)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	af := &atomicFile{file: f, target: target}

	if err := f.Chmod(perm); err != nil {
		primaryErr := fmt.Errorf("chmod %s: %w", f.Name(), err)
		return nil, errors.Join(primaryErr, af.abort())
	}
	if size > 0 {
		if err := fallocateFile(f, size); err != nil {
			primaryErr := fmt.Errorf("failed to allocate disk space: %w", err)
			return nil, errors.Join(primaryErr, af.abort())
		}
	}
	return af, nil
}

// commit syncs, closes and renames the file into place.
func (af *atomicFile) commit() error {
	if err := af.file.Sync(); err != nil {
		primaryErr := fmt.Errorf("sync %s: %w", af.file.Name(), err)
		return errors.Join(primaryErr, af.abort())
	}
	tmp := af.file.Name()
	closeErr := af.file.Close()
	af.file = nil
	if closeErr != nil {
		return errors.Join(fmt.Errorf("close %s: %w", tmp, closeErr), os.Remove(tmp))
	}
	if err := os.Rename(tmp, af.target); err != nil {
		return errors.Join(fmt.Errorf("rename to %s: %w", af.target, err), os.Remove(tmp))
	}
	return nil
}

// abort closes and removes the temporary file.
// Idempotent: safe to call multiple times.
func (af *atomicFile) abort() error {
	if af.file == nil {
		return nil
	}
	tmp := af.file.Name()
	closeErr := af.file.Close()
	af.file = nil
	return errors.Join(closeErr, os.Remove(tmp))
}
