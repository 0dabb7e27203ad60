package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverFile selects the local filesystem backend.
	DriverFile = "file"
	// DriverRedis selects the Redis backend.
	DriverRedis = "redis"
	// DriverS3 selects the AWS S3 backend.
	DriverS3 = "s3"
	// DriverGCS selects the Google Cloud Storage backend.
	DriverGCS = "gcs"
	// DriverMinIO selects the MinIO backend.
	DriverMinIO = "minio"
)

// ErrUnknownDriver indicates an unsupported blob driver.
var ErrUnknownDriver = errors.New("blob: unknown driver")

// FactoryOptions groups configuration for blob drivers.
type FactoryOptions struct {
	// Prefix namespaces every key. It applies to all drivers except file.
	Prefix string
	// Bucket is the bucket name for object store drivers.
	Bucket string
	// File configures the filesystem backend.
	File FileOptions
	// Redis configures the Redis backend.
	Redis RedisOptions
	// S3 configures the S3 backend.
	S3 S3Options
	// GCS configures the GCS backend.
	GCS GCSOptions
	// MinIO configures the MinIO backend.
	MinIO MinIOOptions
}

// NewFromDriver constructs a Blob implementation by driver name. An empty
// driver selects the filesystem.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Blob, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverFile:
		return NewFile(opts.File)
	case DriverRedis:
		opts.Redis.Prefix = opts.Prefix
		return NewRedis(ctx, opts.Redis)
	case DriverS3:
		opts.S3.Bucket, opts.S3.Prefix = opts.Bucket, opts.Prefix
		return NewS3(ctx, opts.S3)
	case DriverGCS:
		opts.GCS.Bucket, opts.GCS.Prefix = opts.Bucket, opts.Prefix
		return NewGCS(ctx, opts.GCS)
	case DriverMinIO:
		opts.MinIO.Bucket, opts.MinIO.Prefix = opts.Bucket, opts.Prefix
		return NewMinIO(opts.MinIO)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
