package docgo

import (
	"log/slog"

	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/index/inverted"
	"github.com/hupe1980/docgo/internal/fs"
)

const (
	// DefaultExportConcurrency is the default number of parallel export writes.
	DefaultExportConcurrency = 4
)

type options struct {
	codec             codec.Codec
	compression       inverted.Compression
	metricsCollector  MetricsCollector
	logger            *Logger
	replaceJournal    bool
	exportConcurrency int
	exportRateLimit   int
	exportMemoryLimit int64
	fs                fs.FileSystem
	hooks             hooks
}

// hooks are test seams inside multi-step operations.
type hooks struct {
	// afterReplaceDelete runs after the old copies are deleted and committed
	// and before the new copy is added.
	afterReplaceDelete func() error
}

// Option configures a Store or a Catalog.
type Option func(*options)

// WithCodec configures the codec used to serialize pristine documents.
//
// Every record remembers its codec, so collections can be reopened with a
// different codec. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures the block compression of new index segments.
// Only used by Catalog.
func WithCompression(c inverted.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithReplaceJournal enables or disables the replace journal (default
// enabled). Without it a crash between the delete and the insert of a
// Replace loses the document.
func WithReplaceJournal(enabled bool) Option {
	return func(o *options) {
		o.replaceJournal = enabled
	}
}

// WithExportConcurrency limits the number of parallel sink writes of an export.
// Values < 1 select DefaultExportConcurrency.
func WithExportConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = DefaultExportConcurrency
		}
		o.exportConcurrency = n
	}
}

// WithExportRateLimit throttles exports to bytesPerSecond.
// Zero disables throttling.
func WithExportRateLimit(bytesPerSecond int) Option {
	return func(o *options) {
		if bytesPerSecond < 0 {
			bytesPerSecond = 0
		}
		o.exportRateLimit = bytesPerSecond
	}
}

// WithExportMemoryLimit bounds the payload bytes an export holds in flight.
// Zero disables the bound.
func WithExportMemoryLimit(bytes int64) Option {
	return func(o *options) {
		if bytes < 0 {
			bytes = 0
		}
		o.exportMemoryLimit = bytes
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &docgo.BasicMetricsCollector{}
//	store, _ := docgo.OpenCollection(ctx, "articles", "./data", docgo.WithMetricsCollector(metrics))
//	// ... use store ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := docgo.NewJSONLogger(slog.LevelInfo)
//	store, _ := docgo.OpenCollection(ctx, "articles", "./data", docgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func withHooks(h hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:             codec.Default,
		compression:       inverted.CompressionLZ4,
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
		replaceJournal:    true,
		exportConcurrency: DefaultExportConcurrency,
		fs:                fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
