package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

// ErrMissingDir indicates the filesystem backend has no root directory.
var ErrMissingDir = errors.New("blob: missing directory")

// FileOptions configures the filesystem backend.
type FileOptions struct {
	// Dir is the root directory. It is created with mode 0700 when missing.
	Dir string
}

// FileAdapter implements Blob on the local filesystem. Blobs are files with
// mode 0600 below Dir; keys map to relative paths.
type FileAdapter struct {
	dir     string
	syncDir func(dir string) error
}

// NewFile constructs a filesystem adapter rooted at opts.Dir.
func NewFile(opts FileOptions) (*FileAdapter, error) {
	if opts.Dir == "" {
		return nil, ErrMissingDir
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("blob: create dir: %w", err)
	}
	return &FileAdapter{dir: opts.Dir, syncDir: syncDir}, nil
}

func (f *FileAdapter) path(key string) (string, error) {
	key, err := cleanKey("", key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.dir, filepath.FromSlash(key)), nil
}

// Write writes data to a temporary file in the target directory, syncs it and
// renames it over the target, then syncs the directory.
//
// The rename is the commit point. A failed directory sync after it is logged
// and does not fail the write, since the new contents are already visible.
func (f *FileAdapter) Write(ctx context.Context, key string, data []byte) error {
	name, err := f.path(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("blob: create dir: %w", err)
	}
	if err := atomicwriter.WriteFile(name, data, 0o600); err != nil {
		return fmt.Errorf("blob: write %s: %w", key, err)
	}

	if err := f.syncDir(dir); err != nil {
		slog.WarnContext(ctx, "blob written but directory sync failed", "key", key, "error", err)
	}
	return nil
}

// Read returns the contents of the file for key.
func (f *FileAdapter) Read(_ context.Context, key string) ([]byte, error) {
	name, err := f.path(key)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- key is validated against traversal above.
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("blob: read %s: %w", key, err)
	}
	return data, nil
}

// Remove deletes the file for key.
func (f *FileAdapter) Remove(_ context.Context, key string) error {
	name, err := f.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob: remove %s: %w", key, err)
	}
	return nil
}

// Close releases filesystem adapter resources.
func (f *FileAdapter) Close() error {
	return nil
}

// syncDir makes a completed rename durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("blob: open dir: %w", err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("blob: sync dir: %w", err)
	}
	return nil
}
