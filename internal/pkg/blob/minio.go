package blob

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOAdapter implements Blob using MinIO.
type MinIOAdapter struct {
	client *minio.Client
	bucket string
	prefix string
}

// MinIOOptions configures MinIO client initialization.
type MinIOOptions struct {
	// Endpoint is the MinIO server address.
	Endpoint string
	// AccessKey is the access key ID.
	AccessKey string
	// SecretKey is the secret access key.
	SecretKey string
	// SessionToken is the optional session token.
	SessionToken string
	// Region is the MinIO region.
	Region string
	// UseSSL toggles TLS for MinIO connections.
	UseSSL bool
	// Bucket holds every blob.
	Bucket string
	// Prefix namespaces every key.
	Prefix string
}

// NewMinIO constructs a MinIO adapter with the provided options.
func NewMinIO(opts MinIOOptions) (*MinIOAdapter, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}
	return NewMinIOWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewMinIOWithClient wraps an existing MinIO client.
func NewMinIOWithClient(client *minio.Client, bucket, prefix string) *MinIOAdapter {
	return &MinIOAdapter{client: client, bucket: bucket, prefix: prefix}
}

// Write uploads data as a single object.
func (m *MinIOAdapter) Write(ctx context.Context, key string, data []byte) error {
	k, err := cleanKey(m.prefix, key)
	if err != nil {
		return err
	}

	_, err = m.client.PutObject(ctx, m.bucket, k, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

// Read downloads the object for key.
func (m *MinIOAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	k, err := cleanKey(m.prefix, key)
	if err != nil {
		return nil, err
	}

	obj, err := m.client.GetObject(ctx, m.bucket, k, minio.GetObjectOptions{})
	if err != nil {
		return nil, minioErr(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, minioErr(err)
	}
	return data, nil
}

// Remove deletes the object for key.
func (m *MinIOAdapter) Remove(ctx context.Context, key string) error {
	k, err := cleanKey(m.prefix, key)
	if err != nil {
		return err
	}

	err = m.client.RemoveObject(ctx, m.bucket, k, minio.RemoveObjectOptions{})
	if err := minioErr(err); err != nil && !errors.Is(err, ErrNotExist) {
		return err
	}
	return nil
}

// Close releases MinIO adapter resources.
func (m *MinIOAdapter) Close() error {
	return nil
}

func minioErr(err error) error {
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotExist
	}
	return err
}
