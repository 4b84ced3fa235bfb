package docgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each insert.
	RecordInsert(duration time.Duration, err error)

	// RecordReplace is called after each replace.
	RecordReplace(duration time.Duration, err error)

	// RecordDelete is called after each delete by id, by query or EmptyAll.
	// count is the number of documents removed.
	RecordDelete(count int, duration time.Duration, err error)

	// RecordNarrow is called after each narrowing query.
	RecordNarrow(results int, duration time.Duration, err error)

	// RecordSearch is called after each query-string search.
	RecordSearch(results int, duration time.Duration, err error)

	// RecordExport is called after each export.
	RecordExport(written, failed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)      {}
func (NoopMetricsCollector) RecordReplace(time.Duration, error)     {}
func (NoopMetricsCollector) RecordDelete(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordNarrow(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordExport(int, int, time.Duration)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	ReplaceCount     atomic.Int64
	ReplaceErrors    atomic.Int64
	DeleteCount      atomic.Int64
	DeletedDocuments atomic.Int64
	DeleteErrors     atomic.Int64
	NarrowCount      atomic.Int64
	NarrowErrors     atomic.Int64
	NarrowTotalNanos atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	ExportWritten    atomic.Int64
	ExportFailed     atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(_ time.Duration, err error) {
	b.InsertCount.Add(1)
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordReplace implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReplace(_ time.Duration, err error) {
	b.ReplaceCount.Add(1)
	if err != nil {
		b.ReplaceErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(count int, _ time.Duration, err error) {
	b.DeleteCount.Add(1)
	b.DeletedDocuments.Add(int64(count))
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordNarrow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordNarrow(_ int, duration time.Duration, err error) {
	b.NarrowCount.Add(1)
	b.NarrowTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.NarrowErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordExport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExport(written, failed int, _ time.Duration) {
	b.ExportWritten.Add(int64(written))
	b.ExportFailed.Add(int64(failed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:      b.InsertCount.Load(),
		InsertErrors:     b.InsertErrors.Load(),
		ReplaceCount:     b.ReplaceCount.Load(),
		ReplaceErrors:    b.ReplaceErrors.Load(),
		DeleteCount:      b.DeleteCount.Load(),
		DeletedDocuments: b.DeletedDocuments.Load(),
		DeleteErrors:     b.DeleteErrors.Load(),
		NarrowCount:      b.NarrowCount.Load(),
		NarrowErrors:     b.NarrowErrors.Load(),
		NarrowAvgNanos:   avg(b.NarrowTotalNanos.Load(), b.NarrowCount.Load()),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchAvgNanos:   avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		ExportWritten:    b.ExportWritten.Load(),
		ExportFailed:     b.ExportFailed.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertErrors     int64
	ReplaceCount     int64
	ReplaceErrors    int64
	DeleteCount      int64
	DeletedDocuments int64
	DeleteErrors     int64
	NarrowCount      int64
	NarrowErrors     int64
	NarrowAvgNanos   int64
	SearchCount      int64
	SearchErrors     int64
	SearchAvgNanos   int64
	ExportWritten    int64
	ExportFailed     int64
}
