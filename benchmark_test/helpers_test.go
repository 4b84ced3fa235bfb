package benchmark_test

import (
	"context"
	"testing"

	"github.com/hupe1980/docgo"
	"github.com/hupe1980/docgo/index/inverted"
	"github.com/hupe1980/docgo/testutil"
)

const (
	benchSeed = 4711
	benchDocs = 2000
)

// openBenchCollection creates and opens a collection in a fresh directory.
func openBenchCollection(b *testing.B, optFns ...docgo.Option) *docgo.Store {
	b.Helper()

	ctx := context.Background()
	path := b.TempDir()
	cat := docgo.NewCatalog(optFns...)
	if err := cat.CreateCollection(ctx, "bench", path); err != nil {
		b.Fatal(err)
	}
	s, err := cat.OpenCollection(ctx, "bench", path)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = s.Close() })
	return s
}

// loadedMemoryStore returns an in-memory store holding n generated documents.
func loadedMemoryStore(b *testing.B, n int) *docgo.Store {
	b.Helper()

	s := docgo.New(inverted.New())
	b.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	for _, d := range testutil.NewRNG(benchSeed).Documents(n) {
		if err := s.Insert(ctx, d); err != nil {
			b.Fatal(err)
		}
	}
	return s
}
