// Package s3 exports documents to Amazon S3.
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sink := s3sink.NewSink(s3.NewFromConfig(cfg), "backups", "articles/")
//	n, err := store.ExportTo(ctx, sink)
//
// Uploads go through the transfer manager, so large documents are sent as
// multipart uploads.
package s3

import (
	"bytes"
	"context"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/docgo/export"
)

// Client is the subset of the S3 API used by the sink.
type Client = manager.UploadAPIClient

// UploadConfig configures the transfer manager.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads per document.
	// Default: 5
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

// Sink implements export.Sink for S3.
type Sink struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	checksum bool
}

// Compile time check to ensure Sink satisfies the export.Sink interface.
var _ export.Sink = (*Sink)(nil)

// NewSink creates a sink with DefaultUploadConfig.
// rootPrefix is prepended to all object keys (e.g. "articles/").
func NewSink(client Client, bucket, rootPrefix string) *Sink {
	return NewSinkWithConfig(client, bucket, rootPrefix, DefaultUploadConfig())
}

// NewSinkWithConfig creates a sink with custom upload settings.
func NewSinkWithConfig(client Client, bucket, rootPrefix string, cfg UploadConfig) *Sink {
	return &Sink{
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			if cfg.PartSize > 0 {
				u.PartSize = cfg.PartSize
			}
			if cfg.Concurrency > 0 {
				u.Concurrency = cfg.Concurrency
			}
		}),
		bucket:   bucket,
		prefix:   rootPrefix,
		checksum: cfg.EnableChecksum,
	}
}

func (s *Sink) key(name string) string {
	return path.Join(s.prefix, name)
}

// Put uploads data under the prefixed key.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	if err := export.ValidateName(name); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	}
	if s.checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	_, err := s.uploader.Upload(ctx, input)
	return err
}
