package inverted

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/hupe1980/docgo/index"
)

// Segment file layout:
//
//	[magic 8][version 4][compression 1][baseID 4][count 4]
//	[rawLen 4][dataLen 4][crc32 4][data dataLen]
//
// The checksum covers the header fields before it and the data.
//
// The raw payload holds count records:
//
//	[numFields uvarint] then per field [flags 1][nameLen uvarint][name][valueLen uvarint][value]
const (
	segmentMagic      = "DOCGOSEG"
	segmentVersion    = 2
	segmentHeaderSize = 8 + 4 + 1 + 4 + 4 + 4 + 4 + 4
	segmentSumOffset  = segmentHeaderSize - 4
)

var (
	// ErrCorruptSegment is returned when a segment file fails validation.
	ErrCorruptSegment = errors.New("corrupt segment")
)

type segment struct {
	baseID  uint32
	records []index.Record
}

func encodeSegment(seg segment, c Compression) ([]byte, error) {
	var raw []byte
	var scratch [binary.MaxVarintLen64]byte
	putUvarint := func(v uint64) {
		n := binary.PutUvarint(scratch[:], v)
		raw = append(raw, scratch[:n]...)
	}

	for _, rec := range seg.records {
		putUvarint(uint64(len(rec)))
		for _, f := range rec {
			raw = append(raw, byte(f.Flags))
			putUvarint(uint64(len(f.Name)))
			raw = append(raw, f.Name...)
			putUvarint(uint64(len(f.Value)))
			raw = append(raw, f.Value...)
		}
	}

	data, used, err := compress(raw, c)
	if err != nil {
		return nil, fmt.Errorf("compress segment: %w", err)
	}

	out := make([]byte, segmentHeaderSize, segmentHeaderSize+len(data))
	copy(out[0:8], segmentMagic)
	binary.LittleEndian.PutUint32(out[8:], segmentVersion)
	out[12] = byte(used)
	binary.LittleEndian.PutUint32(out[13:], seg.baseID)
	binary.LittleEndian.PutUint32(out[17:], uint32(len(seg.records)))
	binary.LittleEndian.PutUint32(out[21:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[25:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[segmentSumOffset:], segmentChecksum(out[:segmentSumOffset], data))
	return append(out, data...), nil
}

func segmentChecksum(header, data []byte) uint32 {
	return crc32.Update(crc32.ChecksumIEEE(header), crc32.IEEETable, data)
}

func decodeSegment(buf []byte) (segment, error) {
	if len(buf) < segmentHeaderSize {
		return segment{}, fmt.Errorf("%w: short header", ErrCorruptSegment)
	}
	if string(buf[0:8]) != segmentMagic {
		return segment{}, fmt.Errorf("%w: invalid magic %q", ErrCorruptSegment, buf[0:8])
	}
	if v := binary.LittleEndian.Uint32(buf[8:]); v != segmentVersion {
		return segment{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptSegment, v)
	}
	c := Compression(buf[12])
	baseID := binary.LittleEndian.Uint32(buf[13:])
	count := binary.LittleEndian.Uint32(buf[17:])
	rawLen := binary.LittleEndian.Uint32(buf[21:])
	dataLen := binary.LittleEndian.Uint32(buf[25:])
	sum := binary.LittleEndian.Uint32(buf[segmentSumOffset:])

	data := buf[segmentHeaderSize:]
	if uint32(len(data)) != dataLen {
		return segment{}, fmt.Errorf("%w: payload length %d, expected %d", ErrCorruptSegment, len(data), dataLen)
	}
	if segmentChecksum(buf[:segmentSumOffset], data) != sum {
		return segment{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptSegment)
	}

	raw, err := decompress(data, c, int(rawLen))
	if err != nil {
		return segment{}, fmt.Errorf("%w: %w", ErrCorruptSegment, err)
	}

	r := &byteReader{buf: raw}
	// Every record takes at least one byte.
	seg := segment{baseID: baseID, records: make([]index.Record, 0, min(int(count), len(raw)))}
	for i := uint32(0); i < count; i++ {
		n := r.uvarint()
		rec := make(index.Record, 0, min(n, uint64(len(raw)-r.off)))
		for j := uint64(0); j < n && r.err == nil; j++ {
			flags := index.FieldFlag(r.byte())
			name := r.string()
			value := r.string()
			rec = append(rec, index.Field{Name: name, Value: value, Flags: flags})
		}
		if r.err != nil {
			return segment{}, fmt.Errorf("%w: record %d: %w", ErrCorruptSegment, i, r.err)
		}
		seg.records = append(seg.records, rec)
	}
	if r.off != len(raw) {
		return segment{}, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSegment, len(raw)-r.off)
	}
	return seg, nil
}

var errShortRead = errors.New("short read")

type byteReader struct {
	buf []byte
	off int
	err error
}

func (r *byteReader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		r.err = errShortRead
		return 0
	}
	r.off += n
	return v
}

func (r *byteReader) byte() byte {
	if r.err != nil {
		return 0
	}
	if r.off >= len(r.buf) {
		r.err = errShortRead
		return 0
	}
	b := r.buf[r.off]
	r.off++
	return b
}

func (r *byteReader) string() string {
	n := r.uvarint()
	if r.err != nil {
		return ""
	}
	if uint64(len(r.buf)-r.off) < n {
		r.err = errShortRead
		return ""
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s
}
