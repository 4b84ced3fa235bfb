// Package index defines the capability docgo requires from a full-text index
// engine.
//
// The engine owns tokenization, scoring and the on-disk format. docgo only
// relies on the operations of the Index interface: appending records,
// deleting by internal id, exact term postings, stored field retrieval and a
// native query-string search.
//
// # Built-in Implementation
//
// The inverted subpackage provides a persistent engine with roaring-bitmap
// postings and BM25 scoring:
//
//	import "github.com/hupe1980/docgo/index/inverted"
//
//	idx, _ := inverted.Create("./data/articles")
//	store := docgo.New(idx)
//
// # Internal IDs
//
// Records are addressed by dense uint32 internal ids assigned in insertion
// order. Deleting a record marks its id; ids are never reused, so callers can
// enumerate every record by scanning 0..MaxID() and skipping IsDeleted ids.
package index
