package inverted

import (
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/docgo/index"
)

type match struct {
	docs   *roaring.Bitmap
	scores map[uint32]float64
}

// Search implements index.Index.
//
// When the query holds a required clause every required clause must match
// and optional clauses only contribute to the score. Otherwise at least one
// optional clause must match. Prohibited clauses exclude records in both
// cases; a query of only prohibited clauses matches nothing.
func (i *Index) Search(query string) ([]index.Hit, error) {
	clauses, err := parseQuery(query)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, index.ErrClosed
	}

	var (
		must, should []match
		exclude      = roaring.New()
	)
	for _, c := range clauses {
		m := i.evalClause(c)
		switch c.occur {
		case occurMust:
			must = append(must, m)
		case occurShould:
			should = append(should, m)
		case occurMustNot:
			exclude.Or(m.docs)
		}
	}

	var result *roaring.Bitmap
	switch {
	case len(must) > 0:
		result = must[0].docs.Clone()
		for _, m := range must[1:] {
			result.And(m.docs)
		}
	case len(should) > 0:
		result = roaring.New()
		for _, m := range should {
			result.Or(m.docs)
		}
	default:
		return nil, nil
	}
	result.AndNot(exclude)

	scores := make(map[uint32]float64, result.GetCardinality())
	for _, m := range slices.Concat(must, should) {
		for id, s := range m.scores {
			if result.Contains(id) {
				scores[id] += s
			}
		}
	}

	hits := make([]index.Hit, 0, result.GetCardinality())
	it := result.Iterator()
	for it.HasNext() {
		id := it.Next()
		hits = append(hits, index.Hit{ID: id, Score: float32(scores[id])})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})
	return hits, nil
}

// evalClause returns the live records matching c with their BM25 scores.
// Unscoped clauses are evaluated against every tokenized field.
func (i *Index) evalClause(c clause) match {
	m := match{docs: roaring.New(), scores: make(map[uint32]float64)}

	if c.field != "" {
		if fi, ok := i.fields[c.field]; ok {
			i.evalField(fi, c, m)
		}
		return m
	}
	for _, fi := range i.fields {
		if fi.tokenized {
			i.evalField(fi, c, m)
		}
	}
	return m
}

func (i *Index) evalField(fi *fieldIndex, c clause, m match) {
	// Keyword fields match the raw clause text.
	if !fi.tokenized {
		if c.prefix {
			for _, t := range fi.termsWithPrefix(c.text) {
				i.scoreTerm(fi, fi.terms[t], nil, m)
			}
			return
		}
		if tp, ok := fi.terms[c.text]; ok {
			i.scoreTerm(fi, tp, nil, m)
		}
		return
	}

	if c.prefix {
		prefix := Fold(c.text)
		for _, t := range fi.termsWithPrefix(prefix) {
			i.scoreTerm(fi, fi.terms[t], nil, m)
		}
		return
	}

	terms := i.opts.analyzer.Analyze(c.text)
	if len(terms) == 0 {
		return
	}
	if !c.phrase || len(terms) == 1 {
		// Unquoted text that analyzes to several terms matches any of them.
		for _, t := range terms {
			if tp, ok := fi.terms[t]; ok {
				i.scoreTerm(fi, tp, nil, m)
			}
		}
		return
	}

	// Phrase: every term must occur at consecutive positions.
	postings := make([]*termPostings, len(terms))
	docs := i.liveDocs(fi.docs)
	for n, t := range terms {
		tp, ok := fi.terms[t]
		if !ok {
			return
		}
		postings[n] = tp
		docs.And(tp.docs)
	}

	phraseDocs := roaring.New()
	it := docs.Iterator()
	for it.HasNext() {
		id := it.Next()
		if hasPhrase(postings, id) {
			phraseDocs.Add(id)
		}
	}
	if phraseDocs.IsEmpty() {
		return
	}
	for _, tp := range postings {
		i.scoreTerm(fi, tp, phraseDocs, m)
	}
}

// scoreTerm adds the live records of tp, restricted to limit when non-nil,
// to m.
func (i *Index) scoreTerm(fi *fieldIndex, tp *termPostings, limit *roaring.Bitmap, m match) {
	docs := i.liveDocs(tp.docs)
	df := docs.GetCardinality()
	if limit != nil {
		docs.And(limit)
	}
	if docs.IsEmpty() {
		return
	}
	fi.score(tp, docs, df, m.scores)
	m.docs.Or(docs)
}

func (i *Index) liveDocs(bm *roaring.Bitmap) *roaring.Bitmap {
	live := bm.Clone()
	live.AndNot(i.deleted)
	return live
}

func hasPhrase(postings []*termPostings, id uint32) bool {
	next := make([]map[uint32]struct{}, len(postings)-1)
	for n, tp := range postings[1:] {
		set := make(map[uint32]struct{}, len(tp.positions[id]))
		for _, p := range tp.positions[id] {
			set[p] = struct{}{}
		}
		next[n] = set
	}

outer:
	for _, start := range postings[0].positions[id] {
		for n, set := range next {
			if _, ok := set[start+uint32(n)+1]; !ok {
				continue outer
			}
		}
		return true
	}
	return false
}
