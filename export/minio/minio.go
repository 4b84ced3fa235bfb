// Package minio exports documents to MinIO and other S3-compatible storage
// using the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sink := miniosink.NewSink(client, "backups", "articles/")
//	n, err := store.ExportTo(ctx, sink)
package minio

import (
	"bytes"
	"context"
	"path"

	"github.com/hupe1980/docgo/export"
	"github.com/minio/minio-go/v7"
)

// Sink implements export.Sink for MinIO.
type Sink struct {
	client      *minio.Client
	bucket      string
	prefix      string
	contentType string
}

// Compile time check to ensure Sink satisfies the export.Sink interface.
var _ export.Sink = (*Sink)(nil)

// NewSink creates a sink writing to bucket.
// rootPrefix is prepended to all object names (e.g. "articles/").
func NewSink(client *minio.Client, bucket, rootPrefix string) *Sink {
	return &Sink{
		client:      client,
		bucket:      bucket,
		prefix:      rootPrefix,
		contentType: "application/octet-stream",
	}
}

// WithContentType sets the content type of uploaded objects.
func (s *Sink) WithContentType(ct string) *Sink {
	s.contentType = ct
	return s
}

func (s *Sink) key(name string) string {
	return path.Join(s.prefix, name)
}

// Put uploads data as a single object.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	if err := export.ValidateName(name); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: s.contentType,
	})
	return err
}
