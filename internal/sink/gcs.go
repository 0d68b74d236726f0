package sink

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// ObjectWriterFunc opens a writer for bucket/object. The object is committed
// when the writer is closed.
type ObjectWriterFunc func(ctx context.Context, bucket, object string) io.WriteCloser

// GCS writes each record to gs://<bucket>/<prefix><item>.json.
type GCS struct {
	bucket    string
	prefix    string
	newWriter ObjectWriterFunc
	closer    io.Closer
}

// NewGCS creates a sink backed by a Cloud Storage client using application
// default credentials. STORAGE_EMULATOR_HOST is honoured by the client.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	s := NewGCSWithWriter(bucket, prefix, func(ctx context.Context, bucket, object string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = "application/json"
		w.CacheControl = "no-cache"
		return w
	})
	s.closer = client
	return s, nil
}

// NewGCSWithWriter creates a sink that writes through fn.
func NewGCSWithWriter(bucket, prefix string, fn ObjectWriterFunc) *GCS {
	return &GCS{bucket: bucket, prefix: prefix, newWriter: fn}
}

// Persist implements Sink.
func (s *GCS) Persist(ctx context.Context, rec Record) error {
	data, err := encode(rec.Output)
	if err != nil {
		return err
	}
	object := s.prefix + objectName(rec.ItemID)
	w := s.newWriter(ctx, s.bucket, object)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write GCS object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}
	return nil
}

// Close releases the storage client.
func (s *GCS) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
