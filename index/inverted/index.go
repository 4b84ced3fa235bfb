package inverted

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/gofrs/flock"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/internal/fs"
)

// Index is an inverted index over records with roaring postings.
//
// All structures live in memory. A persistent index appends one segment per
// commit and rebuilds its structures from the segments on Open.
type Index struct {
	mu   sync.RWMutex
	opts options

	dir      string // empty for in-memory indexes
	lock     *flock.Flock
	manifest *manifest

	fields  map[string]*fieldIndex
	names   map[string]struct{}
	stored  []index.Record
	deleted *roaring.Bitmap
	nextID  uint32

	pending      []index.Record
	deletedDirty bool
	closed       bool
}

// Compile time check to ensure Index satisfies the index.Index interface.
var _ index.Index = (*Index)(nil)

func newIndex(dir string, o options) *Index {
	return &Index{
		opts:    o,
		dir:     dir,
		fields:  make(map[string]*fieldIndex),
		names:   make(map[string]struct{}),
		deleted: roaring.New(),
	}
}

// New creates an in-memory index. Commit is a no-op.
func New(optFns ...Option) *Index {
	return newIndex("", applyOptions(optFns))
}

// Exists reports whether dir holds an index.
func Exists(dir string, optFns ...Option) bool {
	o := applyOptions(optFns)
	_, err := o.fs.Stat(filepath.Join(dir, currentFileName))
	return err == nil
}

// Create initializes a new index in dir and opens it for writing.
// It fails with index.ErrExists if dir already holds an index.
func Create(dir string, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)

	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}
	if Exists(dir, optFns...) {
		return nil, index.ErrExists
	}

	lock, err := acquireLock(dir)
	if err != nil {
		return nil, err
	}

	m := &manifest{}
	if err := saveManifest(o.fs, dir, m); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	idx := newIndex(dir, o)
	idx.lock = lock
	idx.manifest = m
	return idx, nil
}

// Open opens the index in dir for writing.
// It fails with index.ErrNotFound if there is none and with index.ErrLocked
// if another writer holds it.
func Open(dir string, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)

	if !Exists(dir, optFns...) {
		return nil, index.ErrNotFound
	}

	lock, err := acquireLock(dir)
	if err != nil {
		return nil, err
	}

	idx := newIndex(dir, o)
	idx.lock = lock
	if err := idx.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return idx, nil
}

func (i *Index) load() error {
	m, err := loadManifest(i.opts.fs, i.dir)
	if err != nil {
		return err
	}

	for _, si := range m.Segments {
		data, err := fs.ReadFile(i.opts.fs, filepath.Join(i.dir, si.Path))
		if err != nil {
			return fmt.Errorf("failed to read segment %s: %w", si.Path, err)
		}
		seg, err := decodeSegment(data)
		if err != nil {
			return fmt.Errorf("segment %s: %w", si.Path, err)
		}
		if seg.baseID != i.nextID || uint32(len(seg.records)) != si.Count {
			return fmt.Errorf("segment %s: %w: expected base %d", si.Path, ErrCorruptSegment, i.nextID)
		}
		for _, rec := range seg.records {
			i.indexRecord(rec)
		}
	}
	if i.nextID != m.NextID {
		return fmt.Errorf("manifest next id %d does not match %d loaded records", m.NextID, i.nextID)
	}

	if m.Deletions != "" {
		data, err := fs.ReadFile(i.opts.fs, filepath.Join(i.dir, m.Deletions))
		if err != nil {
			return fmt.Errorf("failed to read deletions: %w", err)
		}
		if err := i.deleted.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("failed to decode deletions: %w", err)
		}
		it := i.deleted.Iterator()
		for it.HasNext() {
			id := it.Next()
			for _, fi := range i.fields {
				fi.forget(id)
			}
		}
	}

	i.manifest = m
	return nil
}

// Add implements index.Index.
func (i *Index) Add(rec index.Record) (uint32, error) {
	for _, f := range rec {
		if f.Name == "" {
			return 0, errors.New("field name must not be empty")
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, index.ErrClosed
	}

	id := i.indexRecord(rec)
	if i.dir != "" {
		i.pending = append(i.pending, slices.Clone(rec))
	}
	return id, nil
}

// indexRecord assigns the next id to rec and updates all structures.
func (i *Index) indexRecord(rec index.Record) uint32 {
	id := i.nextID
	i.nextID++

	var stored index.Record
	lengths := make(map[string]uint32)
	for _, f := range rec {
		i.names[f.Name] = struct{}{}
		if f.Flags.Has(index.Stored) {
			stored = append(stored, f)
		}
		if !f.Flags.Has(index.Indexed) {
			continue
		}

		fi, ok := i.fields[f.Name]
		if !ok {
			fi = newFieldIndex(f.Flags.Has(index.Tokenized))
			i.fields[f.Name] = fi
		}

		base := lengths[f.Name]
		if fi.tokenized {
			terms := i.opts.analyzer.Analyze(f.Value)
			for n, t := range terms {
				fi.add(t, id, base+uint32(n))
			}
			lengths[f.Name] = base + uint32(len(terms))
		} else {
			fi.add(f.Value, id, base)
			lengths[f.Name] = base + 1
		}
	}
	for name, n := range lengths {
		i.fields[name].setLength(id, n)
	}

	i.stored = append(i.stored, stored)
	return id
}

// Delete implements index.Index.
func (i *Index) Delete(id uint32) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return index.ErrClosed
	}
	if id >= i.nextID {
		return fmt.Errorf("%w: %d", index.ErrNoRecord, id)
	}
	if !i.deleted.CheckedAdd(id) {
		return nil
	}
	for _, fi := range i.fields {
		fi.forget(id)
	}
	i.deletedDirty = true
	return nil
}

// IsDeleted implements index.Index.
func (i *Index) IsDeleted(id uint32) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.deleted.Contains(id)
}

// MaxID implements index.Index.
func (i *Index) MaxID() uint32 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.nextID
}

// TermPostings implements index.Index. The returned bitmap is a copy.
func (i *Index) TermPostings(field, term string) (*roaring.Bitmap, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, index.ErrClosed
	}
	fi, ok := i.fields[field]
	if !ok {
		return roaring.New(), nil
	}
	tp, ok := fi.terms[term]
	if !ok {
		return roaring.New(), nil
	}
	return tp.docs.Clone(), nil
}

// Record implements index.Index.
func (i *Index) Record(id uint32) (index.Record, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, index.ErrClosed
	}
	if id >= i.nextID {
		return nil, fmt.Errorf("%w: %d", index.ErrNoRecord, id)
	}
	return slices.Clone(i.stored[id]), nil
}

// FieldNames implements index.Index. Names are sorted.
func (i *Index) FieldNames() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	names := make([]string, 0, len(i.names))
	for n := range i.names {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Commit implements index.Index.
func (i *Index) Commit() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return index.ErrClosed
	}
	return i.commit()
}

func (i *Index) commit() error {
	if i.dir == "" {
		return nil
	}
	if len(i.pending) == 0 && !i.deletedDirty {
		return nil
	}

	prev := i.manifest
	m := prev.clone()
	m.Generation++
	m.NextID = i.nextID

	if len(i.pending) > 0 {
		seg := segment{
			baseID:  i.nextID - uint32(len(i.pending)),
			records: i.pending,
		}
		data, err := encodeSegment(seg, i.opts.compression)
		if err != nil {
			return err
		}
		name := fmt.Sprintf(segmentFileFmt, m.Generation)
		if err := fs.WriteFileAtomic(i.opts.fs, filepath.Join(i.dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write segment: %w", err)
		}
		m.Segments = append(m.Segments, segmentInfo{
			Path:   name,
			BaseID: seg.baseID,
			Count:  uint32(len(seg.records)),
			Size:   int64(len(data)),
		})
	}

	if i.deletedDirty {
		i.deleted.RunOptimize()
		data, err := i.deleted.ToBytes()
		if err != nil {
			return fmt.Errorf("failed to encode deletions: %w", err)
		}
		name := fmt.Sprintf(deletionsFileFmt, m.Generation)
		if err := fs.WriteFileAtomic(i.opts.fs, filepath.Join(i.dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write deletions: %w", err)
		}
		m.Deletions = name
	}

	if err := saveManifest(i.opts.fs, i.dir, m); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	i.manifest = m
	i.pending = nil
	i.deletedDirty = false

	// Superseded files are no longer referenced by CURRENT.
	_ = i.opts.fs.Remove(filepath.Join(i.dir, manifestName(prev.Generation)))
	if prev.Deletions != "" && prev.Deletions != m.Deletions {
		_ = i.opts.fs.Remove(filepath.Join(i.dir, prev.Deletions))
	}
	return nil
}

// Close commits pending changes and releases the writer lock.
// Calling Close more than once is a no-op.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true

	err := i.commit()
	if i.lock != nil {
		if uerr := i.lock.Unlock(); uerr != nil && !errors.Is(uerr, os.ErrClosed) {
			err = errors.Join(err, uerr)
		}
	}
	return err
}

// Stats describes the state of an index.
type Stats struct {
	Records    uint32
	Deleted    uint64
	Fields     int
	Segments   int
	Generation uint64
}

// Stats returns index statistics.
func (i *Index) Stats() Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	s := Stats{
		Records: i.nextID,
		Deleted: i.deleted.GetCardinality(),
		Fields:  len(i.names),
	}
	if i.manifest != nil {
		s.Segments = len(i.manifest.Segments)
		s.Generation = i.manifest.Generation
	}
	return s
}
