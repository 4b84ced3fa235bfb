package docgo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/docgo/export"
	"github.com/hupe1980/docgo/internal/fieldcodec"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ExportAll writes the pristine bytes of every live document to dir/<id>.
// dir must be an existing directory.
//
// Every document is attempted. Failures are reported together as an
// *ExportPartialFailure after the last document.
func (s *Store) ExportAll(ctx context.Context, dir string) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	sink := export.NewDir(dir, export.WithFileSystem(s.opts.fs))
	if err := sink.Check(); err != nil {
		return 0, &ValidationError{Field: "dir", Reason: err.Error(), cause: err}
	}
	return s.ExportTo(ctx, sink)
}

// ExportTo writes the pristine bytes of every live document to sink, named
// after the document id. Only the first live document of an id is written;
// later ones are reported as failed with ErrDuplicateID. Writes run in parallel (WithExportConcurrency), are
// throttled by WithExportRateLimit and hold at most WithExportMemoryLimit
// payload bytes in flight.
func (s *Store) ExportTo(ctx context.Context, sink export.Sink) (written int, err error) {
	start := time.Now()
	var failure *ExportPartialFailure
	defer func() {
		failed := 0
		if failure != nil {
			failed = len(failure.FailedIDs)
		}
		s.metrics.RecordExport(written, failed, time.Since(start))
		s.logger.LogExport(ctx, written, failed, err)
	}()

	if err := s.check(ctx); err != nil {
		return 0, err
	}

	var limiter *rate.Limiter
	if s.opts.exportRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.exportRateLimit), s.opts.exportRateLimit)
	}

	var (
		mu       sync.Mutex
		failures []exportFailure
		seen     = make(map[string]struct{})
	)
	fail := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, exportFailure{name: name, err: err})
	}

	var mem *semaphore.Weighted
	if s.opts.exportMemoryLimit > 0 {
		mem = semaphore.NewWeighted(s.opts.exportMemoryLimit)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.exportConcurrency)

	var acquireErr error
	it := s.liveIDs().Iterator()
	for it.HasNext() {
		id := it.Next()
		name, data, err := s.exportPayload(id)
		if err != nil {
			fail(name, err)
			continue
		}
		if _, dup := seen[name]; dup {
			fail(name, ErrDuplicateID)
			continue
		}
		seen[name] = struct{}{}

		// Payloads larger than the limit are written alone.
		weight := min(int64(len(data)), s.opts.exportMemoryLimit)
		if mem != nil {
			if acquireErr = mem.Acquire(gctx, weight); acquireErr != nil {
				break
			}
		}

		g.Go(func() error {
			if mem != nil {
				defer mem.Release(weight)
			}
			if err := waitBytes(gctx, limiter, len(data)); err != nil {
				return err
			}
			if err := sink.Put(gctx, name, data); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				fail(name, err)
				return nil
			}
			mu.Lock()
			written++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return written, err
	}
	if acquireErr != nil {
		return written, acquireErr
	}

	if len(failures) > 0 {
		sort.SliceStable(failures, func(i, j int) bool { return failures[i].name < failures[j].name })
		failure = &ExportPartialFailure{Written: written}
		for _, f := range failures {
			failure.FailedIDs = append(failure.FailedIDs, f.name)
			failure.Errors = append(failure.Errors, fmt.Errorf("%s: %w", f.name, f.err))
		}
		return written, failure
	}
	return written, nil
}

type exportFailure struct {
	name string
	err  error
}

// exportPayload returns the object name and pristine bytes of a record.
// Records without a string id are named "#<internal id>".
func (s *Store) exportPayload(id uint32) (string, []byte, error) {
	name := fmt.Sprintf("#%d", id)

	rec, err := s.idx.Record(id)
	if err != nil {
		return name, nil, translateError(err)
	}
	pristine, codecName, err := fieldcodec.Pristine(rec)
	if err != nil {
		return name, nil, &CorruptRecordError{InternalID: id, cause: err}
	}
	doc, err := s.codec.Unmarshal(pristine, codecName)
	if err != nil {
		return name, nil, &CorruptRecordError{InternalID: id, cause: err}
	}
	docID, ok := doc.ID()
	if !ok {
		return name, nil, &ValidationError{Field: "id", Reason: "document has no string id"}
	}
	return docID, pristine, nil
}

// waitBytes blocks until the limiter grants n bytes. Requests larger than
// the burst are split.
func waitBytes(ctx context.Context, limiter *rate.Limiter, n int) error {
	if limiter == nil {
		return nil
	}
	for n > 0 {
		chunk := min(n, limiter.Burst())
		if err := limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
