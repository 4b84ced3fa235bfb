package docgo

import (
	"testing"

	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/internal/fieldcodec"
	"github.com/hupe1980/docgo/internal/journal"
	"github.com/stretchr/testify/require"
)

func mustRecord(t *testing.T, s *Store, id string) index.Record {
	t.Helper()
	ids, err := s.liveTermIDs(fieldcodec.ExactField(document.IDField), id)
	require.NoError(t, err)
	require.False(t, ids.IsEmpty())
	rec, err := s.idx.Record(ids.Minimum())
	require.NoError(t, err)
	return rec
}

func journalEntry(gen, id string, pristine []byte, codecName string) journal.Entry {
	return journal.Entry{Generation: gen, ID: id, Pristine: pristine, Codec: codecName}
}

func fieldcodecRecordWithoutPristine() index.Record {
	return index.Record{
		{Name: "id", Value: "broken", Flags: index.Text},
		{Name: fieldcodec.ExactField("id"), Value: "broken", Flags: index.Keyword},
	}
}
