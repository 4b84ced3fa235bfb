package document

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentID(t *testing.T) {
	id, ok := Document{"id": String("A")}.ID()
	assert.True(t, ok)
	assert.Equal(t, "A", id)

	_, ok = Document{"id": Int(1)}.ID()
	assert.False(t, ok)

	_, ok = Document{}.ID()
	assert.False(t, ok)
}

func TestDocumentClone(t *testing.T) {
	orig := Document{"tags": Strings("a", "b")}
	clone := orig.Clone()
	clone["tags"].A[0] = String("changed")

	assert.Equal(t, "a", orig["tags"].A[0].S)
	assert.Nil(t, Document(nil).Clone())
}

func TestDocumentKeysSorted(t *testing.T) {
	d := Document{"b": Int(1), "a": Int(2), "c": Int(3)}
	assert.Equal(t, []string{"a", "b", "c"}, d.Keys())
}

func TestFromMap(t *testing.T) {
	d, err := FromMap(map[string]any{
		"id":       "A",
		"count":    3,
		"ratio":    0.5,
		"ok":       true,
		"keywords": []any{"Test", "Pilaster"},
		"num":      json.Number("12"),
		"big":      uint64(7),
	})
	require.NoError(t, err)

	assert.True(t, d["id"].Equal(String("A")))
	assert.True(t, d["count"].Equal(Int(3)))
	assert.True(t, d["ratio"].Equal(Float(0.5)))
	assert.True(t, d["ok"].Equal(Bool(true)))
	assert.True(t, d["keywords"].Equal(Strings("Test", "Pilaster")))
	assert.True(t, d["num"].Equal(Int(12)))
	assert.True(t, d["big"].Equal(Int(7)))
}

func TestFromMapRejects(t *testing.T) {
	_, err := FromMap(map[string]any{"nested": []any{[]any{"a"}}})
	assert.ErrorIs(t, err, ErrNestedList)

	_, err = FromMap(map[string]any{"obj": map[string]any{"a": 1}})
	assert.Error(t, err)

	_, err = FromMap(map[string]any{"nan": math.NaN()})
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = FromAny(uint64(math.MaxUint64))
	assert.Error(t, err)
}

func TestDocumentToMap(t *testing.T) {
	m := Document{"key": String("value"), "n": Int(2)}.ToMap()
	assert.Equal(t, "value", m["key"])
	assert.Equal(t, int64(2), m["n"])
}
