package mphash

import (
	"encoding/binary"

	mpherrors "github.com/tamirms/mphash/errors"
)

const (
	// magic number for mphash parameter images
	// "MPHF" in little-endian
	magic = uint32(0x4648504D)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (32 bytes)
	footerSize = 32
)

// Header flags.
const (
	flagTable = 1 << 0 // table region present
	flagKeys  = 1 << 1 // table region stores keys for verification
)

// header is the 64-byte image header.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       4     Magic       0x4648504D ("MPHF")
//	4       2     Version     0x0001
//	6       2     Flags       uint16_le (bit0 table, bit1 keys)
//	8       4     NumKeys     uint32_le (n)
//	12      4     Range       uint32_le (R)
//	16      12    Salts       [3]uint32_le
//	28      4     ValuesLen   uint32_le (table value bytes)
//	32      4     KeysLen     uint32_le (table key bytes)
//	36      28    Reserved    [28]byte (zero)
//
// Array lengths are not stored: g, ranking and ranking_small are all
// determined by Range.
type header struct {
	Magic     uint32
	Version   uint16
	Flags     uint16
	NumKeys   uint32
	Range     uint32
	Salts     [3]uint32
	ValuesLen uint32
	KeysLen   uint32
	Reserved  [28]byte
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.NumKeys)
	binary.LittleEndian.PutUint32(buf[12:16], h.Range)
	for i, s := range h.Salts {
		binary.LittleEndian.PutUint32(buf[16+4*i:], s)
	}
	binary.LittleEndian.PutUint32(buf[28:32], h.ValuesLen)
	binary.LittleEndian.PutUint32(buf[32:36], h.KeysLen)
	copy(buf[36:64], h.Reserved[:])
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, mpherrors.ErrTruncatedFile
	}

	h := &header{
		Magic:     binary.LittleEndian.Uint32(buf[0:4]),
		Version:   binary.LittleEndian.Uint16(buf[4:6]),
		Flags:     binary.LittleEndian.Uint16(buf[6:8]),
		NumKeys:   binary.LittleEndian.Uint32(buf[8:12]),
		Range:     binary.LittleEndian.Uint32(buf[12:16]),
		ValuesLen: binary.LittleEndian.Uint32(buf[28:32]),
		KeysLen:   binary.LittleEndian.Uint32(buf[32:36]),
	}
	for i := range h.Salts {
		h.Salts[i] = binary.LittleEndian.Uint32(buf[16+4*i:])
	}
	copy(h.Reserved[:], buf[36:64])

	if h.Magic != magic {
		return nil, mpherrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, mpherrors.ErrInvalidVersion
	}
	if h.Flags&^(flagTable|flagKeys) != 0 || (h.Flags&flagKeys != 0 && h.Flags&flagTable == 0) {
		return nil, mpherrors.ErrCorruptedIndex
	}
	if h.NumKeys == 0 || h.Range == 0 || h.Range > MaxRange {
		return nil, mpherrors.ErrCorruptedIndex
	}

	return h, nil
}

// isTable returns true if the image stores values.
func (h *header) isTable() bool {
	return h.Flags&flagTable != 0
}

// hasKeys returns true if the image stores keys for lookup verification.
func (h *header) hasKeys() bool {
	return h.Flags&flagKeys != 0
}

// layout holds the byte offsets of every image region.
type layout struct {
	g, ranking, rankingSmall uint64
	paramsEnd                uint64 // 4-aligned end of the parameter region
	valueOffsets, keyOffsets uint64
	values, keys             uint64
	tableEnd                 uint64 // footer offset
}

// computeLayout derives region offsets from the header alone.
//
//	[Header][g][ranking][ranking_small][pad to 4]
//	[valueOffsets (n+1)x4][keyOffsets (n+1)x4][values][keys][Footer]
//
// The table region is empty for function-only images, and keyOffsets and
// keys are empty without key verification.
func (h *header) computeLayout() layout {
	nv := 3 * h.Range
	gWords := (uint64(nv) + 15) / 16
	nb := (uint64(nv) + RankBlockSize - 1) / RankBlockSize

	var l layout
	l.g = headerSize
	l.ranking = l.g + 4*gWords
	l.rankingSmall = l.ranking + 4*nb
	l.paramsEnd = (l.rankingSmall + nb*RankSmallPerBlock + 3) &^ 3

	offsetsLen := 4 * (uint64(h.NumKeys) + 1)
	l.valueOffsets = l.paramsEnd
	l.keyOffsets = l.valueOffsets
	if h.isTable() {
		l.keyOffsets += offsetsLen
	}
	l.values = l.keyOffsets
	if h.hasKeys() {
		l.values += offsetsLen
	}
	l.keys = l.values + uint64(h.ValuesLen)
	l.tableEnd = l.keys + uint64(h.KeysLen)
	return l
}

// footer is the 32-byte image footer.
//
// Layout:
//
//	Offset  Size  Field             Type
//	0       8     ParamsHash        uint64_le (xxHash64 of header + parameter region)
//	8       8     TableHash         uint64_le (xxHash64 of table region)
//	16      16    Reserved          [16]byte (zero)
type footer struct {
	ParamsHash uint64
	TableHash  uint64
	Reserved   [16]byte
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.ParamsHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.TableHash)
	copy(buf[16:32], f.Reserved[:])
}

// decodeFooter parses a 32-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, mpherrors.ErrTruncatedFile
	}

	f := &footer{
		ParamsHash: binary.LittleEndian.Uint64(buf[0:8]),
		TableHash:  binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(f.Reserved[:], buf[16:32])

	return f, nil
}
