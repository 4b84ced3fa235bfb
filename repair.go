package docgo

import (
	"context"

	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/internal/fieldcodec"
)

// Repair completes replaces interrupted between deleting the old copies and
// adding the new one, and returns the number completed.
//
// A pending replace is complete when a live record with its id carries its
// generation. Otherwise the live records with the id are deleted and the
// journaled document is added again under the same generation.
// Catalog.OpenCollection calls Repair automatically.
func (s *Store) Repair(ctx context.Context) (repaired int, err error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if s.journal == nil {
		return 0, nil
	}

	pending, err := s.journal.Pending()
	if err != nil {
		return 0, translateError(err)
	}
	defer func() {
		s.logger.LogRepair(ctx, len(pending), repaired, err)
	}()

	for _, e := range pending {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}

		done, err := s.replaceCompleted(e.ID, e.Generation)
		if err != nil {
			return repaired, err
		}
		if !done {
			if err := s.redoReplace(ctx, e.ID, e.Generation, e.Pristine, e.Codec); err != nil {
				return repaired, err
			}
			repaired++
		}
		if err := s.journal.Done(e.Generation); err != nil {
			return repaired, translateError(err)
		}
	}

	s.mu.Lock()
	s.unfinished = nil
	s.mu.Unlock()

	if len(pending) > 0 {
		if err := s.journal.Reset(); err != nil {
			return repaired, translateError(err)
		}
	}
	return repaired, nil
}

// unfinishedReplace is a replace that failed in this process after its
// intent was journaled.
type unfinishedReplace struct {
	gen string
	id  string
	doc document.Document
}

func (s *Store) trackUnfinished(u unfinishedReplace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unfinished = append(s.unfinished, u)
}

// supersede marks the unfinished replaces selected by match as done. It runs
// before every write that would otherwise be undone by replaying them.
func (s *Store) supersede(match func(unfinishedReplace) bool) error {
	if s.journal == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	kept := s.unfinished[:0]
	for _, u := range s.unfinished {
		if err == nil && match(u) {
			if err = s.journal.Done(u.gen); err == nil {
				continue
			}
		}
		kept = append(kept, u)
	}
	s.unfinished = kept
	return translateError(err)
}

func (s *Store) replaceCompleted(id, gen string) (bool, error) {
	ids, err := s.liveTermIDs(fieldcodec.ExactField(document.IDField), id)
	if err != nil {
		return false, err
	}
	it := ids.Iterator()
	for it.HasNext() {
		rec, err := s.idx.Record(it.Next())
		if err != nil {
			return false, translateError(err)
		}
		if fieldcodec.Generation(rec) == gen {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) redoReplace(ctx context.Context, id, gen string, pristine []byte, codecName string) error {
	doc, err := s.codec.Unmarshal(pristine, codecName)
	if err != nil {
		return err
	}
	rec, err := s.codec.EncodeWithGeneration(doc, gen)
	if err != nil {
		return translateError(err)
	}
	if _, err := s.deleteByID(ctx, id); err != nil {
		return err
	}
	if _, err := s.idx.Add(rec); err != nil {
		return translateError(err)
	}
	return translateError(s.idx.Commit())
}
