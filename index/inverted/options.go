package inverted

import "github.com/hupe1980/docgo/internal/fs"

type options struct {
	fs          fs.FileSystem
	compression Compression
	analyzer    Analyzer
}

// Option configures an Index.
type Option func(*options)

// WithCompression sets the block compression of newly written segments.
// Existing segments keep the compression they were written with.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithAnalyzer replaces the StandardAnalyzer.
//
// The analyzer is not persisted: reopen an index with the analyzer it was
// written with.
func WithAnalyzer(a Analyzer) Option {
	return func(o *options) {
		if a != nil {
			o.analyzer = a
		}
	}
}

// WithFileSystem sets the file system used for segments and manifests.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fs = fsys
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		fs:          fs.Default,
		compression: CompressionLZ4,
		analyzer:    StandardAnalyzer{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
