package docgo

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/index/inverted"
	"github.com/hupe1980/docgo/internal/fieldcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = "pilaster_test"

func testDoc() document.Document {
	return document.Document{
		"id":       document.String("TEST_001"),
		"title":    document.String("Test"),
		"author":   document.String("mbutcher"),
		"body":     document.String("This is a test"),
		"keywords": document.Strings("Test", "Experiment", "Pilaster"),
	}
}

func openTestStore(t *testing.T, optFns ...Option) (*Store, string) {
	t.Helper()
	ctx := context.Background()
	path := t.TempDir()

	c := NewCatalog(optFns...)
	require.NoError(t, c.CreateCollection(ctx, testCollection, path))
	s, err := c.OpenCollection(ctx, testCollection, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert(ctx, testDoc()))

	doc, ok, err := s.Get(ctx, "TEST_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, testDoc().Equal(doc))

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := s.Has(ctx, "TEST_001")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestInsertKeepsTypes(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	doc := document.Document{
		"id":    document.String("typed"),
		"n":     document.Int(7),
		"f":     document.Float(7.5),
		"ok":    document.Bool(true),
		"mixed": document.List(document.Int(1), document.String("a")),
	}
	require.NoError(t, s.Insert(ctx, doc))

	got, ok, err := s.Get(ctx, "typed")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, document.KindInt, got["n"].Kind)
	assert.True(t, doc.Equal(got))
}

func TestInsertRejectsReservedFields(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	err := s.Insert(ctx, document.Document{fieldcodec.PristineField: document.String("x")})
	assert.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, fieldcodec.PristineField, ve.Field)

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertRejectsInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	err := s.Insert(ctx, document.Document{"id": document.String("x"), "body": document.String("a\xffb")})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, document.ErrInvalidUTF8)

	err = s.Replace(ctx, document.Document{"id": document.String("x"), "b\xffdy": document.String("ok")})
	assert.ErrorIs(t, err, ErrValidation)

	has, err := s.Has(ctx, "x")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "no documents to begin")

	require.NoError(t, s.Insert(ctx, testDoc()))
	n, _ = s.Count(ctx, nil)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("AnotherDoc")}))
	n, _ = s.Count(ctx, nil)
	assert.Equal(t, 2, n)

	n, err = s.Count(ctx, Narrower{"id": document.String("TEST_001")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, _ = s.Count(ctx, Narrower{"id": document.String("foo")})
	assert.Equal(t, 0, n)

	n, _ = s.Count(ctx, Narrower{"title": document.String("Test")})
	assert.Equal(t, 1, n)

	n, err = s.NarrowCount(ctx, Narrower{"title": document.String("Test")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNarrow(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	require.NoError(t, s.Insert(ctx, testDoc()))

	res, err := s.Find(ctx, Narrower{"id": document.String("TEST_001")})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, document.String("Test"), res[0]["title"])

	q := Narrower{"title": document.String("Test")}
	res, err = s.Find(ctx, q)
	require.NoError(t, err)
	assert.Len(t, res, 1)

	require.NoError(t, s.Insert(ctx, document.Document{
		"id":    document.String("SecondDoc"),
		"title": document.String("Test"),
	}))
	res, err = s.Find(ctx, q)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, document.String("TEST_001"), res[0]["id"])
	assert.Equal(t, document.String("SecondDoc"), res[1]["id"])

	q["id"] = document.String("SecondDoc")
	res, err = s.Find(ctx, q)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, document.String("SecondDoc"), res[0]["id"])

	res, err = s.Narrow(ctx, Narrower{})
	require.NoError(t, err)
	assert.Empty(t, res)

	// Exact match is case sensitive and not tokenized.
	res, err = s.Narrow(ctx, Narrower{"title": document.String("test")})
	require.NoError(t, err)
	assert.Empty(t, res)
	res, err = s.Narrow(ctx, Narrower{"body": document.String("test")})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestNarrowTypedAndLists(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, document.Document{
		"id":   document.String("n"),
		"year": document.Int(2001),
	}))

	res, err := s.Narrow(ctx, Narrower{"year": document.Int(2001)})
	require.NoError(t, err)
	assert.Len(t, res, 1)

	// Lists only match as a whole.
	res, err = s.Narrow(ctx, Narrower{"keywords": document.Strings("Test", "Experiment", "Pilaster")})
	require.NoError(t, err)
	assert.Len(t, res, 1)
	res, err = s.Narrow(ctx, Narrower{"keywords": document.String("Test")})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestFindWithString(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, document.Document{
		"id":    document.String("SecondDoc"),
		"title": document.String("Test"),
	}))

	res, err := s.Find(ctx, QueryString("keywords:Test"))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, document.String("Test"), res[0]["title"])

	require.NoError(t, s.Insert(ctx, document.Document{
		"id":       document.String("AnotherDoc"),
		"keywords": document.Strings("Test", "Stinky cheese"),
	}))
	res, err = s.Find(ctx, QueryString("keywords:Test"))
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = s.Find(ctx, QueryString(`keywords:"Stinky cheese"`))
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, document.String("AnotherDoc"), res[0]["id"])

	res, err = s.Find(ctx, QueryString("keywords:AnotherDoc"))
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = s.Find(ctx, QueryString("+keywords:Stinky"))
	require.NoError(t, err)
	assert.Len(t, res, 1)

	res, err = s.Find(ctx, QueryString("-keywords:Stinky +keywords:Test"))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, document.String("TEST_001"), res[0]["id"])

	res, err = s.Find(ctx, QueryString("title:Tes*"))
	require.NoError(t, err)
	assert.Len(t, res, 2)

	_, err = s.Find(ctx, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.Search(ctx, `title:"unterminated`)
	assert.ErrorIs(t, err, inverted.ErrInvalidQuery)
}

func TestFindOne(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("AnotherDoc")}))

	res, ok, err := s.FindOne(ctx, Narrower{"id": document.String("TEST_001")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, document.String("Test"), res["title"])
	kw, _ := res["keywords"].AsList()
	assert.Len(t, kw, 3)
	assert.Equal(t, document.String("This is a test"), res["body"])

	_, ok, err = s.FindOne(ctx, Narrower{"id": document.String("nope")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	// Without a prior record Replace inserts.
	require.NoError(t, s.Replace(ctx, testDoc()))

	updated := testDoc()
	updated["title"] = document.String("Updated")
	require.NoError(t, s.Save(ctx, updated))

	n, err := s.Count(ctx, Narrower{"id": document.String("TEST_001")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, ok, err := s.Get(ctx, "TEST_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, document.String("Updated"), doc["title"])

	n, _ = s.Count(ctx, Narrower{"title": document.String("Test")})
	assert.Zero(t, n)

	err = s.Replace(ctx, document.Document{"title": document.String("no id")})
	assert.ErrorIs(t, err, ErrValidation)
	err = s.Replace(ctx, document.Document{"id": document.Int(5)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReplaceCollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, testDoc()))
	n, _ := s.Count(ctx, Narrower{"id": document.String("TEST_001")})
	require.Equal(t, 2, n)

	require.NoError(t, s.Replace(ctx, testDoc()))
	n, _ = s.Count(ctx, Narrower{"id": document.String("TEST_001")})
	assert.Equal(t, 1, n)
}

var errCrash = errors.New("simulated crash")

func TestReplaceCrashRecovery(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t, withHooks(hooks{
		afterReplaceDelete: func() error { return errCrash },
	}))

	require.NoError(t, s.Insert(ctx, testDoc()))

	updated := testDoc()
	updated["title"] = document.String("Updated")
	require.ErrorIs(t, s.Replace(ctx, updated), errCrash)

	// The old copy is gone and the new one was never added.
	has, err := s.Has(ctx, "TEST_001")
	require.NoError(t, err)
	assert.False(t, has)
	require.NoError(t, s.Close())

	reopened, err := OpenCollection(ctx, testCollection, path)
	require.NoError(t, err)
	defer reopened.Close()

	doc, ok, err := reopened.Get(ctx, "TEST_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, document.String("Updated"), doc["title"])

	// Repair is idempotent.
	n, err := reopened.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailedReplaceIsSupersededByLaterWrites(t *testing.T) {
	fresh := testDoc()
	fresh["title"] = document.String("Fresh")
	stale := testDoc()
	stale["title"] = document.String("Stale")

	tests := []struct {
		name    string
		write   func(ctx context.Context, s *Store) error
		wantHas bool
	}{
		{
			name: "insert then delete by id",
			write: func(ctx context.Context, s *Store) error {
				if err := s.Insert(ctx, fresh); err != nil {
					return err
				}
				_, err := s.DeleteByID(ctx, "TEST_001")
				return err
			},
		},
		{
			name:    "insert",
			write:   func(ctx context.Context, s *Store) error { return s.Insert(ctx, fresh) },
			wantHas: true,
		},
		{
			name: "delete by query",
			write: func(ctx context.Context, s *Store) error {
				_, err := s.DeleteByQuery(ctx, Narrower{"author": document.String("mbutcher")})
				return err
			},
		},
		{
			name:  "empty all",
			write: func(ctx context.Context, s *Store) error { return s.EmptyAll(ctx) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, path := openTestStore(t, withHooks(hooks{
				afterReplaceDelete: func() error { return errCrash },
			}))

			require.NoError(t, s.Insert(ctx, testDoc()))
			require.ErrorIs(t, s.Replace(ctx, stale), errCrash)
			require.NoError(t, tt.write(ctx, s))
			require.NoError(t, s.Close())

			reopened, err := OpenCollection(ctx, testCollection, path)
			require.NoError(t, err)
			defer reopened.Close()

			doc, ok, err := reopened.Get(ctx, "TEST_001")
			require.NoError(t, err)
			require.Equal(t, tt.wantHas, ok)
			if ok {
				assert.Equal(t, document.String("Fresh"), doc["title"])
			}
			n, err := reopened.Count(ctx, nil)
			require.NoError(t, err)
			if tt.wantHas {
				assert.Equal(t, 1, n)
			} else {
				assert.Zero(t, n)
			}
		})
	}
}

func TestFailedReplaceOfOtherIDIsStillRepaired(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t, withHooks(hooks{
		afterReplaceDelete: func() error { return errCrash },
	}))

	require.ErrorIs(t, s.Replace(ctx, document.Document{"id": document.String("a")}), errCrash)
	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("b")}))
	_, err := s.DeleteByID(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenCollection(ctx, testCollection, path)
	require.NoError(t, err)
	defer reopened.Close()

	has, err := reopened.Has(ctx, "a")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCloseReportsUnreadableJournal(t *testing.T) {
	s, path := openTestStore(t)

	// A well-framed record of an unknown type.
	frame := make([]byte, 9)
	frame[4] = 0x7f
	binary.LittleEndian.PutUint32(frame[0:4], crc32.ChecksumIEEE(frame[4:]))

	f, err := os.OpenFile(filepath.Join(path, testCollection, JournalFileName), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(frame)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.ErrorContains(t, s.Close(), "unknown journal record type")
}

func TestReplaceCrashWithoutJournal(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t, WithReplaceJournal(false), withHooks(hooks{
		afterReplaceDelete: func() error { return errCrash },
	}))

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.ErrorIs(t, s.Replace(ctx, testDoc()), errCrash)
	require.NoError(t, s.Close())

	reopened, err := OpenCollection(ctx, testCollection, path, WithReplaceJournal(false))
	require.NoError(t, err)
	defer reopened.Close()

	has, err := reopened.Has(ctx, "TEST_001")
	require.NoError(t, err)
	assert.False(t, has, "the document is lost")
}

func TestRepairCompletedReplace(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Replace(ctx, testDoc()))

	// Intent without Done whose record already exists.
	rec := mustRecord(t, s, "TEST_001")
	pristine, codecName, err := fieldcodec.Pristine(rec)
	require.NoError(t, err)
	require.NoError(t, s.journal.Intent(journalEntry(fieldcodec.Generation(rec), "TEST_001", pristine, codecName)))

	n, err := s.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, _ := s.Count(ctx, nil)
	assert.Equal(t, 1, count)
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("other")}))

	n, err := s.DeleteByID(ctx, "TEST_001")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.DeleteByID(ctx, "TEST_001")
	require.NoError(t, err)
	assert.Zero(t, n)

	count, _ := s.Count(ctx, nil)
	assert.Equal(t, 1, count)
}

func TestDeleteByQuery(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("b"), "title": document.String("Test")}))
	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("c"), "title": document.String("Other")}))

	_, err := s.DeleteByQuery(ctx, Narrower{})
	assert.ErrorIs(t, err, ErrValidation)

	n, err := s.Remove(ctx, Narrower{"title": document.String("Test")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, document.String("c"), all[0]["id"])

	// Deleted documents are invisible to search as well.
	res, err := s.Search(ctx, "title:test")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestEmptyAll(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("b")}))
	require.NoError(t, s.EmptyAll(ctx))

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Idempotent on an empty store.
	require.NoError(t, s.EmptyAll(ctx))
}

func TestFieldQueries(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("b"), "title": document.String("Other")}))
	require.NoError(t, s.Insert(ctx, document.Document{"id": document.String("c")}))

	names, err := s.FieldNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "body", "id", "keywords", "title"}, names)

	ids, err := s.IDsByField(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, []string{"TEST_001", "b"}, ids)

	values, err := s.ValuesByField(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, map[string]document.Value{
		"TEST_001": document.String("Test"),
		"b":        document.String("Other"),
	}, values)
}

func TestCorruptRecord(t *testing.T) {
	ctx := context.Background()
	idx := inverted.New()
	s := New(idx)

	_, err := idx.Add(fieldcodecRecordWithoutPristine())
	require.NoError(t, err)

	_, err = s.All(ctx)
	var cre *CorruptRecordError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, uint32(0), cre.InternalID)
	assert.ErrorIs(t, err, fieldcodec.ErrMissingPristine)
}

func TestCodecs(t *testing.T) {
	ctx := context.Background()
	for _, c := range []codec.Codec{codec.GoJSON{}, codec.JSON{}, codec.YAML{}} {
		t.Run(c.Name(), func(t *testing.T) {
			s := New(inverted.New(), WithCodec(c))
			require.NoError(t, s.Insert(ctx, testDoc()))

			doc, ok, err := s.Get(ctx, "TEST_001")
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, testDoc().Equal(doc))
		})
	}
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := New(inverted.New())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Insert(ctx, testDoc()), ErrClosed)
	_, err := s.Find(ctx, Narrower{"id": document.String("x")})
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = s.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Count(ctx, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestContextCanceled(t *testing.T) {
	s := New(inverted.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Insert(ctx, testDoc()), context.Canceled)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	mc := &BasicMetricsCollector{}
	s := New(inverted.New(), WithMetricsCollector(mc))

	require.NoError(t, s.Insert(ctx, testDoc()))
	require.NoError(t, s.Replace(ctx, testDoc()))
	_, err := s.Narrow(ctx, Narrower{"id": document.String("TEST_001")})
	require.NoError(t, err)
	_, err = s.Search(ctx, "test")
	require.NoError(t, err)
	_, err = s.DeleteByID(ctx, "TEST_001")
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.InsertCount)
	assert.Equal(t, int64(1), stats.ReplaceCount)
	assert.Equal(t, int64(1), stats.NarrowCount)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(1), stats.DeletedDocuments)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "docgo "+Version, New(inverted.New()).Version())
}
