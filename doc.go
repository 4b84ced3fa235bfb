// Package docgo is an embedded document database.
//
// Documents are maps of named scalar or list values. They are stored in
// collections backed by an inverted index and can be retrieved by id,
// narrowed by exact field values or searched with a full-text query string.
//
// # Quick Start
//
//	ctx := context.Background()
//	_ = docgo.CreateCollection(ctx, "articles", "./data")
//	store, _ := docgo.OpenCollection(ctx, "articles", "./data")
//	defer store.Close()
//
//	_ = store.Insert(ctx, document.Document{
//	    "id":    document.String("a1"),
//	    "title": document.String("Stinky cheese"),
//	    "year":  document.Int(2001),
//	})
//
//	doc, ok, _ := store.Get(ctx, "a1")
//	docs, _ := store.Narrow(ctx, docgo.Narrower{"year": document.Int(2001)})
//	hits, _ := store.Search(ctx, `title:"stinky cheese" -draft`)
//
// # Narrowing and Search
//
// Narrowing compares the canonical term of each value for equality and
// returns documents in insertion order. Search uses the index query
// language (field scoping, phrases, +/- clauses, trailing * wildcards,
// AND/OR/NOT) and returns documents by descending BM25 relevance.
//
// # Replace
//
// The index has no transactions. Replace deletes the old copies, commits,
// adds the new copy and commits again. Collections opened through a Catalog
// keep a replace journal so that a replace interrupted between the two
// commits is completed the next time the collection is opened.
//
// # Export
//
// ExportAll writes the stored bytes of every document to a directory;
// ExportTo writes them to any export.Sink such as MinIO or S3.
package docgo
