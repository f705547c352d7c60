package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/williamokano/backup-tool/pkg/storage"
)

// Backend keeps artifacts in a directory on the local filesystem. It serves
// both as the backup directory itself and as a "local" offsite destination
// (a mounted NAS, a second disk).
type Backend struct {
	name     string
	basePath string
}

func init() {
	storage.RegisterBackend("local", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(cfg)
	})
}

// New creates a local destination from config, creating its directory
func New(cfg storage.Config) (*Backend, error) {
	path, err := storage.OptString(cfg.Options, "path", true)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	return Open(cfg.Name, path), nil
}

// Open wraps an existing directory without touching the filesystem
func Open(name, dir string) *Backend {
	return &Backend{name: name, basePath: dir}
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "local" }

// Dir returns the directory this backend manages
func (b *Backend) Dir() string { return b.basePath }

// Write copies a file into the backend. The copy is written under a
// temporary name and renamed into place once complete.
func (b *Backend) Write(ctx context.Context, sourcePath, destPath string) error {
	destFullPath := filepath.Join(b.basePath, destPath)

	if err := os.MkdirAll(filepath.Dir(destFullPath), 0755); err != nil {
		return storage.WrapError(b.name, "write", err)
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return storage.WrapError(b.name, "write", err)
	}
	defer source.Close()

	tmpPath := destFullPath + ".part"
	dest, err := os.Create(tmpPath)
	if err != nil {
		return storage.WrapError(b.name, "write", err)
	}

	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		os.Remove(tmpPath)
		return storage.WrapError(b.name, "write", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(tmpPath)
		return storage.WrapError(b.name, "write", err)
	}

	if err := os.Rename(tmpPath, destFullPath); err != nil {
		os.Remove(tmpPath)
		return storage.WrapError(b.name, "write", err)
	}

	return nil
}

// Delete removes a file from the backend
func (b *Backend) Delete(ctx context.Context, path string) error {
	if err := os.Remove(filepath.Join(b.basePath, path)); err != nil {
		return storage.WrapError(b.name, "delete", mapError(err))
	}
	return nil
}

// List returns the regular files directly inside the directory whose names
// match pattern, in name order. Empty files are included.
func (b *Backend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	entries, err := os.ReadDir(b.basePath)
	if err != nil {
		return nil, storage.WrapError(b.name, "list", mapError(err))
	}

	var files []storage.FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !storage.MatchPattern(pattern, entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}

		files = append(files, storage.FileInfo{
			Path:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}

// Stat returns metadata about a file
func (b *Backend) Stat(ctx context.Context, path string) (*storage.FileInfo, error) {
	info, err := os.Stat(filepath.Join(b.basePath, path))
	if err != nil {
		return nil, storage.WrapError(b.name, "stat", mapError(err))
	}

	return &storage.FileInfo{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Exists checks if a file exists
func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	_, err := b.Stat(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Close is a no-op for local backend
func (b *Backend) Close() error {
	return nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", storage.ErrPermissionDenied, err)
	default:
		return err
	}
}
