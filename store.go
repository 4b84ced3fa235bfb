package docgo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/internal/fieldcodec"
	"github.com/hupe1980/docgo/internal/journal"
)

// Version is the docgo release.
const Version = "0.4.0"

// Store is a collection of documents backed by an index.
//
// A Store supports a single writer. Concurrent reads are safe as far as the
// underlying index allows; the built-in index is safe for concurrent use.
type Store struct {
	idx     index.Index
	codec   *fieldcodec.Codec
	journal *journal.Journal // nil when disabled
	opts    options
	logger  *Logger
	metrics MetricsCollector
	closed  atomic.Bool

	mu         sync.Mutex
	unfinished []unfinishedReplace // failed replaces still pending in the journal
}

// New wraps an open index.
//
// Stores created with New have no replace journal; use a Catalog for
// collections with crash recovery.
func New(idx index.Index, optFns ...Option) *Store {
	return newStore(idx, nil, applyOptions(optFns))
}

func newStore(idx index.Index, j *journal.Journal, o options) *Store {
	return &Store{
		idx:     idx,
		codec:   fieldcodec.New(o.codec),
		journal: j,
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
}

// Version returns the driver version string.
func (s *Store) Version() string {
	return "docgo " + Version
}

func (s *Store) check(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

// Insert adds doc without checking for duplicate ids.
func (s *Store) Insert(ctx context.Context, doc document.Document) (err error) {
	start := time.Now()
	id, _ := doc.ID()
	defer func() {
		s.metrics.RecordInsert(time.Since(start), err)
		s.logger.LogInsert(ctx, id, err)
	}()

	if err := s.check(ctx); err != nil {
		return err
	}

	rec, err := s.codec.Encode(doc)
	if err != nil {
		return translateError(err)
	}
	if id, ok := doc.ID(); ok {
		if err := s.supersede(func(u unfinishedReplace) bool { return u.id == id }); err != nil {
			return err
		}
	}
	if _, err := s.idx.Add(rec); err != nil {
		return translateError(err)
	}
	return translateError(s.idx.Commit())
}

// Replace stores doc as the only live document with its id, inserting it
// when no document with the id exists. doc must have a string id.
//
// The old copies are deleted and committed before the new copy is added.
// With the replace journal enabled an interrupted replace is completed by
// Repair on the next open, unless a later write in the same process touched
// the id.
func (s *Store) Replace(ctx context.Context, doc document.Document) (err error) {
	start := time.Now()
	id, ok := doc.ID()
	replaced := 0
	defer func() {
		s.metrics.RecordReplace(time.Since(start), err)
		s.logger.LogReplace(ctx, id, replaced, err)
	}()

	if err := s.check(ctx); err != nil {
		return err
	}
	if !ok {
		return &ValidationError{Field: document.IDField, Reason: "replace requires a string id"}
	}

	gen := uuid.NewString()
	rec, err := s.codec.EncodeWithGeneration(doc, gen)
	if err != nil {
		return translateError(err)
	}

	if s.journal != nil {
		if err := s.supersede(func(u unfinishedReplace) bool { return u.id == id }); err != nil {
			return err
		}
		pristine, codecName, perr := fieldcodec.Pristine(rec)
		if perr != nil {
			return perr
		}
		if err := s.journal.Intent(journal.Entry{
			Generation: gen,
			ID:         id,
			Pristine:   pristine,
			Codec:      codecName,
		}); err != nil {
			return translateError(err)
		}
		defer func() {
			if err != nil {
				s.trackUnfinished(unfinishedReplace{gen: gen, id: id, doc: doc.Clone()})
			}
		}()
	}

	replaced, err = s.deleteByID(ctx, id)
	if err != nil {
		return err
	}

	if h := s.opts.hooks.afterReplaceDelete; h != nil {
		if err := h(); err != nil {
			return err
		}
	}

	if _, err := s.idx.Add(rec); err != nil {
		return translateError(err)
	}
	if err := s.idx.Commit(); err != nil {
		return translateError(err)
	}

	if s.journal != nil {
		return translateError(s.journal.Done(gen))
	}
	return nil
}

// Save is an alias for Replace.
func (s *Store) Save(ctx context.Context, doc document.Document) error {
	return s.Replace(ctx, doc)
}

// DeleteByID deletes every live document with the given id and returns the
// number deleted.
func (s *Store) DeleteByID(ctx context.Context, id string) (n int, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordDelete(n, time.Since(start), err)
		s.logger.LogDelete(ctx, n, err)
	}()

	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if err := s.supersede(func(u unfinishedReplace) bool { return u.id == id }); err != nil {
		return 0, err
	}
	return s.deleteByID(ctx, id)
}

func (s *Store) deleteByID(ctx context.Context, id string) (int, error) {
	ids, err := s.liveTermIDs(fieldcodec.ExactField(document.IDField), id)
	if err != nil {
		return 0, err
	}
	return s.deleteIDs(ctx, ids)
}

// DeleteByQuery deletes every live document matching spec and returns the
// number deleted. An empty spec fails with a ValidationError.
func (s *Store) DeleteByQuery(ctx context.Context, spec Narrower) (n int, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordDelete(n, time.Since(start), err)
		s.logger.LogDelete(ctx, n, err)
	}()

	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if len(spec) == 0 {
		return 0, &ValidationError{Field: "spec", Reason: "refusing to delete with an empty narrowing spec"}
	}
	if err := s.supersede(func(u unfinishedReplace) bool { return spec.matches(u.doc) }); err != nil {
		return 0, err
	}

	ids, err := s.narrowIDs(spec)
	if err != nil {
		return 0, err
	}
	return s.deleteIDs(ctx, ids)
}

// Remove is an alias for DeleteByQuery.
func (s *Store) Remove(ctx context.Context, spec Narrower) (int, error) {
	return s.DeleteByQuery(ctx, spec)
}

// EmptyAll deletes every live document.
func (s *Store) EmptyAll(ctx context.Context) (err error) {
	start := time.Now()
	n := 0
	defer func() {
		s.metrics.RecordDelete(n, time.Since(start), err)
		s.logger.LogDelete(ctx, n, err)
	}()

	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.supersede(func(unfinishedReplace) bool { return true }); err != nil {
		return err
	}
	ids := s.liveIDs()
	n, err = s.deleteIDs(ctx, ids)
	return err
}

func (s *Store) deleteIDs(ctx context.Context, ids *roaring.Bitmap) (int, error) {
	n := 0
	it := ids.Iterator()
	for it.HasNext() {
		if err := ctx.Err(); err != nil {
			return n, errors.Join(err, translateError(s.idx.Commit()))
		}
		if err := s.idx.Delete(it.Next()); err != nil {
			return n, translateError(err)
		}
		n++
	}
	if err := s.idx.Commit(); err != nil {
		return n, translateError(err)
	}
	return n, nil
}

// Has reports whether a live document with the id exists.
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	ids, err := s.liveTermIDs(fieldcodec.ExactField(document.IDField), id)
	if err != nil {
		return false, err
	}
	return !ids.IsEmpty(), nil
}

// Get returns the live document with the lowest internal id among those with
// the given id. A missing document is reported as (nil, false, nil).
func (s *Store) Get(ctx context.Context, id string) (document.Document, bool, error) {
	if err := s.check(ctx); err != nil {
		return nil, false, err
	}
	ids, err := s.liveTermIDs(fieldcodec.ExactField(document.IDField), id)
	if err != nil {
		return nil, false, err
	}
	if ids.IsEmpty() {
		return nil, false, nil
	}
	doc, err := s.decode(ids.Minimum())
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Count returns the number of live documents matching q, or of all live
// documents when q is nil.
func (s *Store) Count(ctx context.Context, q Query) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if q == nil {
		return int(s.liveIDs().GetCardinality()), nil
	}
	docs, err := s.Find(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// All returns every live document in insertion order.
func (s *Store) All(ctx context.Context) ([]document.Document, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.decodeAll(ctx, s.liveIDs())
}

// Close commits pending changes and releases the collection.
// Calling Close more than once is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if err := s.idx.Commit(); err != nil && !errors.Is(err, index.ErrClosed) {
		errs = append(errs, err)
	}
	if s.journal != nil {
		pending, err := s.journal.Pending()
		switch {
		case err != nil:
			errs = append(errs, err)
		case len(pending) == 0:
			if err := s.journal.Reset(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.idx.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// liveIDs returns every internal id that is not deleted.
func (s *Store) liveIDs() *roaring.Bitmap {
	ids := roaring.New()
	maxID := s.idx.MaxID()
	for id := uint32(0); id < maxID; id++ {
		if !s.idx.IsDeleted(id) {
			ids.Add(id)
		}
	}
	return ids
}

// liveTermIDs returns the live records holding term in field.
func (s *Store) liveTermIDs(field, term string) (*roaring.Bitmap, error) {
	ids, err := s.idx.TermPostings(field, term)
	if err != nil {
		return nil, translateError(err)
	}
	s.dropDeleted(ids)
	return ids, nil
}

func (s *Store) dropDeleted(ids *roaring.Bitmap) {
	var deleted []uint32
	it := ids.Iterator()
	for it.HasNext() {
		if id := it.Next(); s.idx.IsDeleted(id) {
			deleted = append(deleted, id)
		}
	}
	for _, id := range deleted {
		ids.Remove(id)
	}
}

func (s *Store) decode(id uint32) (document.Document, error) {
	rec, err := s.idx.Record(id)
	if err != nil {
		return nil, translateError(err)
	}
	doc, err := s.codec.Decode(rec)
	if err != nil {
		return nil, &CorruptRecordError{InternalID: id, cause: err}
	}
	return doc, nil
}

func (s *Store) decodeAll(ctx context.Context, ids *roaring.Bitmap) ([]document.Document, error) {
	docs := make([]document.Document, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.decode(it.Next())
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
