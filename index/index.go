package index

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index is closed")
	// ErrLocked is returned when another writer holds the index.
	ErrLocked = errors.New("index is locked by another writer")
	// ErrNotFound is returned when an index directory does not exist.
	ErrNotFound = errors.New("index not found")
	// ErrExists is returned when creating an index that already exists.
	ErrExists = errors.New("index already exists")
	// ErrNoRecord is returned for internal ids outside 0..MaxID().
	ErrNoRecord = errors.New("no such record")
)

// FieldFlag describes how a field is handled by the engine.
type FieldFlag uint8

const (
	// Indexed fields produce postings.
	Indexed FieldFlag = 1 << iota
	// Tokenized fields are analyzed into terms before indexing.
	// Without this flag the whole value is a single term.
	Tokenized
	// Stored fields are returned by Record.
	Stored
)

// Has reports whether all bits of o are set in f.
func (f FieldFlag) Has(o FieldFlag) bool { return f&o == o }

// Common field configurations.
const (
	// Text is analyzed and searchable but not retrievable.
	Text = Indexed | Tokenized
	// Keyword is searchable as one exact term but not retrievable.
	Keyword = Indexed
	// StoredOnly is retrievable but not searchable.
	StoredOnly = Stored
)

// Field is a single named value of a record.
type Field struct {
	Name  string
	Value string
	Flags FieldFlag
}

// Record is the unit appended to the index.
type Record []Field

// Get returns the value of the first field with the given name.
func (r Record) Get(name string) (string, bool) {
	for i := range r {
		if r[i].Name == name {
			return r[i].Value, true
		}
	}
	return "", false
}

// Hit is a scored query-string match.
type Hit struct {
	ID    uint32
	Score float32
}

// Index is the capability consumed by the document store.
//
// Implementations are not required to support concurrent writers.
type Index interface {
	// Add appends a record and returns its internal id.
	Add(rec Record) (uint32, error)
	// Commit makes pending additions and deletions durable.
	Commit() error
	// Delete marks the record as deleted.
	Delete(id uint32) error
	// IsDeleted reports whether the record was deleted.
	IsDeleted(id uint32) bool
	// MaxID returns the successor of the highest internal id ever assigned.
	MaxID() uint32
	// TermPostings returns the ids of records holding the exact term in field.
	// The result may include deleted records.
	TermPostings(field, term string) (*roaring.Bitmap, error)
	// Record returns the stored fields of a record.
	Record(id uint32) (Record, error)
	// FieldNames returns every field name known to the index.
	FieldNames() []string
	// Search runs a native query-string search over live records.
	// Hits are ordered by descending score.
	Search(query string) ([]Hit, error)
	// Close commits and releases the index.
	Close() error
}
