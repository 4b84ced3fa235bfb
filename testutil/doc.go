// Package testutil provides testing utilities for docgo.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible documents with skewed field values, so
// narrowing and search workloads resemble real collections.
//
// # Random Documents
//
//	rng := testutil.NewRNG(seed)
//	docs := rng.Documents(1000)     // ids "doc-000000" ...
//	text := rng.Sentence(12)        // Zipf-distributed words
package testutil
