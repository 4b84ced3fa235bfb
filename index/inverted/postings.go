package inverted

import (
	"math"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

const (
	k1 = 1.2
	b  = 0.75
)

type termPostings struct {
	docs      *roaring.Bitmap
	freqs     map[uint32]uint32
	positions map[uint32][]uint32 // tokenized fields only
}

func newTermPostings(tokenized bool) *termPostings {
	tp := &termPostings{
		docs:  roaring.New(),
		freqs: make(map[uint32]uint32),
	}
	if tokenized {
		tp.positions = make(map[uint32][]uint32)
	}
	return tp
}

// fieldIndex holds the postings and length statistics of one field.
type fieldIndex struct {
	tokenized   bool
	terms       map[string]*termPostings
	docs        *roaring.Bitmap
	lengths     map[uint32]uint32
	totalLength uint64
	liveDocs    uint64
}

func newFieldIndex(tokenized bool) *fieldIndex {
	return &fieldIndex{
		tokenized: tokenized,
		terms:     make(map[string]*termPostings),
		docs:      roaring.New(),
		lengths:   make(map[uint32]uint32),
	}
}

func (fi *fieldIndex) add(term string, id, pos uint32) {
	tp, ok := fi.terms[term]
	if !ok {
		tp = newTermPostings(fi.tokenized)
		fi.terms[term] = tp
	}
	tp.docs.Add(id)
	tp.freqs[id]++
	if tp.positions != nil {
		tp.positions[id] = append(tp.positions[id], pos)
	}
}

func (fi *fieldIndex) setLength(id, n uint32) {
	fi.docs.Add(id)
	fi.lengths[id] = n
	fi.totalLength += uint64(n)
	fi.liveDocs++
}

// forget removes a deleted record from the length statistics.
// Its postings stay in place and are filtered at query time.
func (fi *fieldIndex) forget(id uint32) {
	n, ok := fi.lengths[id]
	if !ok {
		return
	}
	delete(fi.lengths, id)
	fi.totalLength -= uint64(n)
	fi.liveDocs--
}

// termsWithPrefix returns all terms of the field starting with prefix.
func (fi *fieldIndex) termsWithPrefix(prefix string) []string {
	var out []string
	for t := range fi.terms {
		if strings.HasPrefix(t, prefix) {
			out = append(out, t)
		}
	}
	return out
}

// score computes the BM25 weight of term for each live document in docs.
func (fi *fieldIndex) score(tp *termPostings, docs *roaring.Bitmap, df uint64, acc map[uint32]float64) {
	if fi.liveDocs == 0 {
		return
	}
	n := float64(fi.liveDocs)
	idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	avgDL := float64(fi.totalLength) / n
	if avgDL == 0 {
		avgDL = 1
	}

	it := docs.Iterator()
	for it.HasNext() {
		id := it.Next()
		tf := float64(tp.freqs[id])
		dl := float64(fi.lengths[id])
		acc[id] += idf * (tf * (k1 + 1)) / (tf + k1*(1-b+b*(dl/avgDL)))
	}
}
