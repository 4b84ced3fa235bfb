// Package journal implements the replace intent journal.
//
// A replace deletes the live records of an id and then inserts the new
// document; the index commits both steps separately. Before the delete the
// store appends an Intent carrying the full new document, and after the
// insert it appends Done. Intents without a matching Done are replayed on
// the next open.
//
// File layout:
//
//	[magic 8][version 4] then records [crc32 4][type 1][len 4][payload len]
//
// The checksum covers type, length and payload. A torn or corrupt tail is
// treated as the end of the journal.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"sync"

	"github.com/hupe1980/docgo/internal/fs"
)

const (
	magic      = "DOCGOJNL"
	version    = 1
	headerSize = 12
	frameSize  = 9
)

var (
	// ErrInvalidHeader is returned when the file is not a journal.
	ErrInvalidHeader = errors.New("invalid journal header")
	// ErrIncompatibleVersion is returned for journals of another version.
	ErrIncompatibleVersion = errors.New("incompatible journal version")
	// ErrClosed is returned by operations on a closed journal.
	ErrClosed = errors.New("journal is closed")
)

// RecordType identifies a journal record.
type RecordType uint8

const (
	// RecordTypeIntent announces a replace.
	RecordTypeIntent RecordType = 1
	// RecordTypeDone marks a replace as complete.
	RecordTypeDone RecordType = 2
)

// Entry is a replace intent.
type Entry struct {
	Generation string
	ID         string
	Pristine   []byte
	Codec      string
}

// Journal is an append-only, fsync'd intent log.
type Journal struct {
	mu     sync.Mutex
	fs     fs.FileSystem
	file   fs.File
	path   string
	closed bool
}

// Open opens or creates the journal at path.
func Open(fsys fs.FileSystem, path string) (*Journal, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if stat.Size() == 0 {
		header := make([]byte, headerSize)
		copy(header[0:8], magic)
		binary.LittleEndian.PutUint32(header[8:12], version)
		if _, err := f.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		if stat.Size() < headerSize {
			f.Close()
			return nil, fmt.Errorf("%w: file too small (%d < %d)", ErrInvalidHeader, stat.Size(), headerSize)
		}
		header := make([]byte, headerSize)
		if _, err := f.ReadAt(header, 0); err != nil {
			f.Close()
			return nil, err
		}
		if string(header[0:8]) != magic {
			f.Close()
			return nil, fmt.Errorf("%w: invalid magic %q", ErrInvalidHeader, header[0:8])
		}
		if v := binary.LittleEndian.Uint32(header[8:12]); v != version {
			f.Close()
			return nil, fmt.Errorf("%w: version %d (expected %d)", ErrIncompatibleVersion, v, version)
		}

		// Drop a torn tail so that new records stay reachable.
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			f.Close()
			return nil, err
		}
		if end := validLength(data); end < len(data) {
			if err := fsys.Truncate(path, int64(end)); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	return &Journal{fs: fsys, file: f, path: path}, nil
}

// Intent durably records the intention to replace id with pristine.
func (j *Journal) Intent(e Entry) error {
	var payload []byte
	payload = appendString(payload, e.Generation)
	payload = appendString(payload, e.ID)
	payload = appendString(payload, e.Codec)
	payload = appendString(payload, string(e.Pristine))
	return j.append(RecordTypeIntent, payload)
}

// Done durably marks the replace with the given generation as complete.
func (j *Journal) Done(gen string) error {
	return j.append(RecordTypeDone, appendString(nil, gen))
}

func (j *Journal) append(t RecordType, payload []byte) error {
	buf := make([]byte, frameSize, frameSize+len(payload))
	buf[4] = byte(t)
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(payload)))
	buf = append(buf, payload...)
	binary.LittleEndian.PutUint32(buf[0:4], crc32.ChecksumIEEE(buf[4:]))

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	if _, err := j.file.Write(buf); err != nil {
		return fmt.Errorf("journal write failed: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("journal sync failed: %w", err)
	}
	return nil
}

// Pending returns the intents without a Done record, in append order.
func (j *Journal) Pending() ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil, ErrClosed
	}

	data, err := fs.ReadFile(j.fs, j.path)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize {
		return nil, ErrInvalidHeader
	}

	var (
		intents []Entry
		done    = make(map[string]struct{})
	)
	for off := headerSize; ; {
		t, payload, end, ok := nextFrame(data, off)
		if !ok {
			break
		}
		off = end

		switch t {
		case RecordTypeIntent:
			e, ok := decodeIntent(payload)
			if !ok {
				return nil, fmt.Errorf("malformed intent record at offset %d", off)
			}
			intents = append(intents, e)
		case RecordTypeDone:
			gen, _, ok := readString(payload)
			if !ok {
				return nil, fmt.Errorf("malformed done record at offset %d", off)
			}
			done[gen] = struct{}{}
		default:
			return nil, fmt.Errorf("unknown journal record type %d", t)
		}
	}

	pending := intents[:0]
	for _, e := range intents {
		if _, ok := done[e.Generation]; !ok {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Reset drops all records.
func (j *Journal) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	if err := j.fs.Truncate(j.path, headerSize); err != nil {
		return err
	}
	return j.file.Sync()
}

// Close closes the journal file. Calling Close more than once is a no-op.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// nextFrame returns the record starting at off. ok is false at the end of
// the journal or at a torn record.
func nextFrame(data []byte, off int) (t RecordType, payload []byte, end int, ok bool) {
	if off+frameSize > len(data) {
		return 0, nil, off, false
	}
	sum := binary.LittleEndian.Uint32(data[off:])
	n := int(binary.LittleEndian.Uint32(data[off+5:]))
	end = off + frameSize + n
	if n < 0 || end > len(data) || crc32.ChecksumIEEE(data[off+4:end]) != sum {
		return 0, nil, off, false
	}
	return RecordType(data[off+4]), data[off+frameSize : end], end, true
}

// validLength returns the length of the intact prefix of data.
func validLength(data []byte) int {
	off := headerSize
	for {
		_, _, end, ok := nextFrame(data, off)
		if !ok {
			return off
		}
		off = end
	}
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, bool) {
	n, k := binary.Uvarint(buf)
	if k <= 0 || uint64(len(buf)-k) < n {
		return "", nil, false
	}
	return string(buf[k : k+int(n)]), buf[k+int(n):], true
}

func decodeIntent(payload []byte) (Entry, bool) {
	var (
		e        Entry
		pristine string
		ok       bool
	)
	if e.Generation, payload, ok = readString(payload); !ok {
		return Entry{}, false
	}
	if e.ID, payload, ok = readString(payload); !ok {
		return Entry{}, false
	}
	if e.Codec, payload, ok = readString(payload); !ok {
		return Entry{}, false
	}
	if pristine, _, ok = readString(payload); !ok {
		return Entry{}, false
	}
	e.Pristine = []byte(pristine)
	return e, true
}
