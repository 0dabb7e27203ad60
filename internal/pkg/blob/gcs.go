package blob

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
)

// GCSAdapter implements Blob using Google Cloud Storage.
type GCSAdapter struct {
	client *gcs.Client
	bucket string
	prefix string
}

// GCSOptions configures GCS client initialization.
type GCSOptions struct {
	// Client provides an existing GCS client.
	Client *gcs.Client
	// Bucket holds every blob.
	Bucket string
	// Prefix namespaces every key.
	Prefix string
}

// NewGCS constructs a GCS adapter, creating a default client when none is given.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCSAdapter, error) {
	client := opts.Client
	if client == nil {
		created, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		client = created
	}
	return &GCSAdapter{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// Write uploads data as a single object. GCS finalizes the object on Close.
func (g *GCSAdapter) Write(ctx context.Context, key string, data []byte) error {
	k, err := cleanKey(g.prefix, key)
	if err != nil {
		return err
	}

	writer := g.client.Bucket(g.bucket).Object(k).NewWriter(ctx)
	writer.ContentType = "application/octet-stream"
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// Read downloads the object for key.
func (g *GCSAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	k, err := cleanKey(g.prefix, key)
	if err != nil {
		return nil, err
	}

	reader, err := g.client.Bucket(g.bucket).Object(k).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// Remove deletes the object for key.
func (g *GCSAdapter) Remove(ctx context.Context, key string) error {
	k, err := cleanKey(g.prefix, key)
	if err != nil {
		return err
	}

	err = g.client.Bucket(g.bucket).Object(k).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

// Close closes the GCS client.
func (g *GCSAdapter) Close() error {
	return g.client.Close()
}
