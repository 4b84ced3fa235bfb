package fieldcodec

import (
	"testing"

	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	c := New(codec.GoJSON{})
	doc := document.Document{
		"id":    document.String("a1"),
		"title": document.String("Stinky cheese"),
		"year":  document.Int(2001),
		"tags":  document.Strings("x", "y"),
	}

	rec, err := c.Encode(doc)
	require.NoError(t, err)

	names := make([]string, 0, len(rec))
	for _, f := range rec {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"id", "___id", "tags", "___tags", "title", "___title", "year", "___year",
		PristineField, CodecField,
	}, names)

	assert.Equal(t, index.Field{Name: "title", Value: "Stinky cheese", Flags: index.Text}, rec[4])
	assert.Equal(t, index.Field{Name: "___title", Value: "Stinky cheese", Flags: index.Keyword}, rec[5])
	assert.Equal(t, index.Field{Name: "___year", Value: "2001", Flags: index.Keyword}, rec[7])
	assert.Equal(t, index.Field{Name: "___tags", Value: "x y", Flags: index.Keyword}, rec[3])

	got, err := c.Decode(rec)
	require.NoError(t, err)
	assert.True(t, doc.Equal(got))
	assert.Empty(t, Generation(rec))
}

func TestEncodeWithGeneration(t *testing.T) {
	c := New(nil)
	rec, err := c.EncodeWithGeneration(document.Document{"id": document.String("x")}, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "gen-1", Generation(rec))
}

func TestEncodeRejects(t *testing.T) {
	c := New(nil)
	tests := map[string]document.Document{
		"reserved":   {PristineField: document.String("x")},
		"internal":   {"__foo": document.Int(1)},
		"empty name": {"": document.Int(1)},
		"nested":     {"a": document.List(document.List(document.Int(1)))},
		"bad utf8":   {"body": document.String("a\xffb")},
		"bad name":   {"b\xffdy": document.String("x")},
		"bad list":   {"tags": document.Strings("ok", "\xc3")},
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Encode(doc)
			var fe *FieldError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	for _, c := range []*Codec{New(codec.GoJSON{}), New(codec.JSON{}), New(codec.YAML{})} {
		t.Run(c.Name(), func(t *testing.T) {
			_, err := c.Encode(document.Document{"body": document.String("a\xffb")})
			assert.ErrorIs(t, err, document.ErrInvalidUTF8)

			doc := document.Document{"body": document.String("käse ✓")}
			rec, err := c.Encode(doc)
			require.NoError(t, err)
			got, err := c.Decode(rec)
			require.NoError(t, err)
			assert.True(t, doc.Equal(got))
		})
	}
}

func TestDecode_Corrupt(t *testing.T) {
	c := New(nil)

	_, err := c.Decode(index.Record{{Name: "title", Value: "x"}})
	assert.ErrorIs(t, err, ErrMissingPristine)

	_, err = c.Decode(index.Record{{Name: PristineField, Value: "{not json"}})
	assert.Error(t, err)

	_, err = c.Decode(index.Record{
		{Name: PristineField, Value: "{}"},
		{Name: CodecField, Value: "gob"},
	})
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestDecode_RecordCodecWins(t *testing.T) {
	doc := document.Document{"id": document.String("y"), "n": document.Float(1.5)}
	rec, err := New(codec.YAML{}).Encode(doc)
	require.NoError(t, err)

	got, err := New(codec.GoJSON{}).Decode(rec)
	require.NoError(t, err)
	assert.True(t, doc.Equal(got))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "___id", ExactField("id"))
	assert.True(t, IsInternal("__pristine"))
	assert.True(t, IsInternal("___id"))
	assert.False(t, IsInternal("_id"))
}
