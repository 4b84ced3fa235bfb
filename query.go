package docgo

import (
	"context"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/internal/fieldcodec"
)

// Query is either a Narrower or a QueryString.
type Query interface {
	isQuery()
}

// Narrower is a conjunction of exact field matches. A document matches when
// every field equals the given value.
//
// List values match only the complete list in the same order.
type Narrower map[string]document.Value

func (Narrower) isQuery() {}

// QueryString is a full-text query in the index query language:
//
//	keywords:"stinky cheese" +title:test -draft tes* OR other
type QueryString string

func (QueryString) isQuery() {}

// Find runs q and returns the matching documents.
func (s *Store) Find(ctx context.Context, q Query) ([]document.Document, error) {
	switch q := q.(type) {
	case Narrower:
		return s.Narrow(ctx, q)
	case QueryString:
		return s.Search(ctx, string(q))
	default:
		return nil, &ValidationError{Field: "query", Reason: "query must be a Narrower or a QueryString"}
	}
}

// FindOne returns the first document Find would return.
func (s *Store) FindOne(ctx context.Context, q Query) (document.Document, bool, error) {
	docs, err := s.Find(ctx, q)
	if err != nil || len(docs) == 0 {
		return nil, false, err
	}
	return docs[0], true, nil
}

// Narrow returns the live documents matching every pair of spec in
// insertion order. An empty spec matches nothing.
func (s *Store) Narrow(ctx context.Context, spec Narrower) (docs []document.Document, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordNarrow(len(docs), time.Since(start), err)
		s.logger.LogQuery(ctx, "narrow", len(docs), err)
	}()

	if err := s.check(ctx); err != nil {
		return nil, err
	}
	ids, err := s.narrowIDs(spec)
	if err != nil {
		return nil, err
	}
	return s.decodeAll(ctx, ids)
}

// NarrowCount returns the number of live documents matching spec without
// decoding them.
func (s *Store) NarrowCount(ctx context.Context, spec Narrower) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	ids, err := s.narrowIDs(spec)
	if err != nil {
		return 0, err
	}
	return int(ids.GetCardinality()), nil
}

// matches reports whether doc holds every pair of spec. An empty spec
// matches nothing.
func (spec Narrower) matches(doc document.Document) bool {
	if len(spec) == 0 {
		return false
	}
	for f, v := range spec {
		dv, ok := doc[f]
		if !ok || dv.Term() != v.Term() {
			return false
		}
	}
	return true
}

// narrowIDs intersects the exact-match postings of every pair of spec.
func (s *Store) narrowIDs(spec Narrower) (*roaring.Bitmap, error) {
	if len(spec) == 0 {
		return roaring.New(), nil
	}

	fields := make([]string, 0, len(spec))
	for f := range spec {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var ids *roaring.Bitmap
	for _, f := range fields {
		v := spec[f]
		if err := v.Validate(); err != nil {
			return nil, &ValidationError{Field: f, Reason: err.Error(), cause: err}
		}
		postings, err := s.idx.TermPostings(fieldcodec.ExactField(f), v.Term())
		if err != nil {
			return nil, translateError(err)
		}
		if ids == nil {
			ids = postings
		} else {
			ids.And(postings)
		}
		if ids.IsEmpty() {
			return ids, nil
		}
	}
	s.dropDeleted(ids)
	return ids, nil
}

// Search runs a query-string search and returns the matching documents in
// relevance order.
func (s *Store) Search(ctx context.Context, text string) (docs []document.Document, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordSearch(len(docs), time.Since(start), err)
		s.logger.LogQuery(ctx, "search", len(docs), err)
	}()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	hits, err := s.idx.Search(text)
	if err != nil {
		return nil, translateError(err)
	}

	docs = make([]document.Document, 0, len(hits))
	for _, h := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.idx.IsDeleted(h.ID) {
			continue
		}
		doc, err := s.decode(h.ID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
