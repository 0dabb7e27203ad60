// Package blob stores small opaque byte blobs under string keys.
//
// Every driver replaces a blob as a whole: a reader observes either the old
// or the new contents, never a partial write.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	// ErrNotExist indicates that no blob is stored under the key.
	ErrNotExist = errors.New("blob: not exist")
	// ErrInvalidKey indicates an empty key or one that escapes its namespace.
	ErrInvalidKey = errors.New("blob: invalid key")
)

// Blob defines whole-object storage operations.
type Blob interface {
	io.Closer

	// Write atomically replaces the blob stored under key.
	Write(ctx context.Context, key string, data []byte) error
	// Read returns the blob stored under key, or ErrNotExist.
	Read(ctx context.Context, key string) ([]byte, error)
	// Remove deletes the blob stored under key. A missing blob is not an error.
	Remove(ctx context.Context, key string) error
}

// cleanKey validates key and joins it under prefix using forward slashes.
func cleanKey(prefix, key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrInvalidKey
		}
	}

	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key, nil
	}
	return path.Join(prefix, key), nil
}
