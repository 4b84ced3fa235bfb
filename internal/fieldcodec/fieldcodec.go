// Package fieldcodec maps documents to index records and back.
//
// Every user field n produces a tokenized field n for full-text search and an
// untokenized field ___n for exact matching, both holding the canonical term
// of the value. The whole document is serialized into the stored-only field
// __pristine, which is the only source Decode reads from.
package fieldcodec

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/index"
)

const (
	// InternalPrefix marks field names reserved for bookkeeping.
	InternalPrefix = "__"
	// ExactPrefix is prepended to field names for exact-match fields.
	ExactPrefix = "___"
	// PristineField stores the serialized document.
	PristineField = "__pristine"
	// CodecField stores the name of the codec the pristine was written with.
	CodecField = "__codec"
	// GenerationField stores the replace generation token.
	GenerationField = "__generation"
)

var (
	// ErrMissingPristine is returned when a record has no __pristine field.
	ErrMissingPristine = errors.New("record has no pristine field")
	// ErrUnknownCodec is returned when a record names a codec that is not built in.
	ErrUnknownCodec = errors.New("unknown codec")
)

// FieldError reports a document field that cannot be encoded.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ExactField returns the exact-match field name for name.
func ExactField(name string) string { return ExactPrefix + name }

// IsInternal reports whether name is a reserved field name.
func IsInternal(name string) bool { return strings.HasPrefix(name, InternalPrefix) }

// Codec converts between documents and index records.
type Codec struct {
	pristine codec.Codec
}

// New returns a Codec serializing pristine documents with c.
func New(c codec.Codec) *Codec {
	if c == nil {
		c = codec.Default
	}
	return &Codec{pristine: c}
}

// Name returns the name of the pristine codec.
func (c *Codec) Name() string { return c.pristine.Name() }

// Encode builds the index record for doc. Fields are emitted in sorted
// field-name order.
func (c *Codec) Encode(doc document.Document) (index.Record, error) {
	return c.EncodeWithGeneration(doc, "")
}

// EncodeWithGeneration is like Encode and additionally stores gen in
// __generation when it is not empty.
func (c *Codec) EncodeWithGeneration(doc document.Document, gen string) (index.Record, error) {
	keys := doc.Keys()
	rec := make(index.Record, 0, 2*len(keys)+3)

	for _, name := range keys {
		if name == "" {
			return nil, &FieldError{Field: name, Reason: "field name must not be empty"}
		}
		if !utf8.ValidString(name) {
			return nil, &FieldError{Field: name, Reason: "field name must be valid UTF-8", Err: document.ErrInvalidUTF8}
		}
		if IsInternal(name) {
			return nil, &FieldError{Field: name, Reason: "field names starting with " + InternalPrefix + " are reserved"}
		}
		v := doc[name]
		if err := v.Validate(); err != nil {
			return nil, &FieldError{Field: name, Reason: err.Error(), Err: err}
		}
		term := v.Term()
		rec = append(rec,
			index.Field{Name: name, Value: term, Flags: index.Text},
			index.Field{Name: ExactField(name), Value: term, Flags: index.Keyword},
		)
	}

	pristine, err := c.Marshal(doc)
	if err != nil {
		return nil, err
	}
	rec = append(rec,
		index.Field{Name: PristineField, Value: string(pristine), Flags: index.StoredOnly},
		index.Field{Name: CodecField, Value: c.pristine.Name(), Flags: index.StoredOnly},
	)
	if gen != "" {
		rec = append(rec, index.Field{Name: GenerationField, Value: gen, Flags: index.StoredOnly})
	}
	return rec, nil
}

// Marshal serializes doc with the pristine codec.
func (c *Codec) Marshal(doc document.Document) ([]byte, error) {
	data, err := c.pristine.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return data, nil
}

// Decode rebuilds the document from the __pristine field of rec using the
// codec named in __codec. Records without __codec use the configured codec.
func (c *Codec) Decode(rec index.Record) (document.Document, error) {
	pristine, ok := rec.Get(PristineField)
	if !ok {
		return nil, ErrMissingPristine
	}
	name, _ := rec.Get(CodecField)
	return c.Unmarshal([]byte(pristine), name)
}

// Unmarshal deserializes pristine bytes written by the codec called name.
func (c *Codec) Unmarshal(data []byte, name string) (document.Document, error) {
	pc := c.pristine
	if name != "" && name != pc.Name() {
		var ok bool
		if pc, ok = codec.ByName(name); !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownCodec, name)
		}
	}
	var doc document.Document
	if err := pc.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to deserialize document: %w", err)
	}
	if doc == nil {
		doc = document.Document{}
	}
	return doc, nil
}

// Pristine returns the raw pristine bytes and the codec name of rec.
func Pristine(rec index.Record) ([]byte, string, error) {
	pristine, ok := rec.Get(PristineField)
	if !ok {
		return nil, "", ErrMissingPristine
	}
	name, _ := rec.Get(CodecField)
	return []byte(pristine), name, nil
}

// Generation returns the replace generation stored in rec, if any.
func Generation(rec index.Record) string {
	gen, _ := rec.Get(GenerationField)
	return gen
}
