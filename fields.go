package docgo

import (
	"context"

	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/internal/fieldcodec"
)

// FieldNames returns the sorted names of every field ever indexed, without
// internal bookkeeping fields.
func (s *Store) FieldNames(ctx context.Context) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var names []string
	for _, n := range s.idx.FieldNames() {
		if !fieldcodec.IsInternal(n) {
			names = append(names, n)
		}
	}
	return names, nil
}

// IDsByField returns the ids of the live documents that define the field,
// in insertion order. Documents without a string id are skipped.
func (s *Store) IDsByField(ctx context.Context, name string) ([]string, error) {
	var ids []string
	err := s.eachWithField(ctx, name, func(id string, _ document.Value) {
		ids = append(ids, id)
	})
	return ids, err
}

// ValuesByField maps the id of every live document defining the field to
// its value.
func (s *Store) ValuesByField(ctx context.Context, name string) (map[string]document.Value, error) {
	values := make(map[string]document.Value)
	err := s.eachWithField(ctx, name, func(id string, v document.Value) {
		if _, seen := values[id]; !seen {
			values[id] = v
		}
	})
	return values, err
}

func (s *Store) eachWithField(ctx context.Context, name string, fn func(id string, v document.Value)) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	it := s.liveIDs().Iterator()
	for it.HasNext() {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := s.decode(it.Next())
		if err != nil {
			return err
		}
		v, ok := doc[name]
		if !ok {
			continue
		}
		if id, ok := doc.ID(); ok {
			fn(id, v)
		}
	}
	return nil
}
