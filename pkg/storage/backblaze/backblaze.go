package backblaze

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/kurin/blazer/b2"

	"github.com/williamokano/backup-tool/pkg/storage"
)

type Backend struct {
	name   string
	client *b2.Client
	bucket *b2.Bucket
	prefix string
}

func init() {
	storage.RegisterBackend("backblaze", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(ctx, cfg)
	})
}

// New creates a new Backblaze B2 backend
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	b2Cfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, err
	}

	client, err := b2.NewClient(ctx, b2Cfg.AccountID, b2Cfg.ApplicationKey)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", storage.ErrAuthFailed)
	}

	bucket, err := client.Bucket(ctx, b2Cfg.BucketName)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "get bucket", storage.Classify(err))
	}

	return &Backend{
		name:   cfg.Name,
		client: client,
		bucket: bucket,
		prefix: b2Cfg.Prefix,
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "backblaze" }

func (b *Backend) object(name string) *b2.Object {
	return b.bucket.Object(path.Join(b.prefix, name))
}

// Write uploads a file to B2
func (b *Backend) Write(ctx context.Context, sourcePath, destPath string) error {
	return storage.WithRetry(ctx, storage.DefaultRetryConfig(), func() error {
		file, err := os.Open(sourcePath)
		if err != nil {
			return err
		}
		defer file.Close()

		writer := b.object(destPath).NewWriter(ctx)

		if _, err := io.Copy(writer, file); err != nil {
			writer.Close()
			return storage.WrapError(b.name, "upload", storage.Classify(err))
		}

		if err := writer.Close(); err != nil {
			return storage.WrapError(b.name, "upload", storage.Classify(err))
		}

		return nil
	})
}

// Delete removes a file from B2
func (b *Backend) Delete(ctx context.Context, objectPath string) error {
	if err := b.object(objectPath).Delete(ctx); err != nil {
		return storage.WrapError(b.name, "delete", mapError(err))
	}
	return nil
}

// List returns the objects directly under the prefix whose names match pattern
func (b *Backend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	listPrefix := storage.PatternPrefix(pattern)
	if b.prefix != "" {
		listPrefix = b.prefix + "/" + listPrefix
	}

	var files []storage.FileInfo

	iter := b.bucket.List(ctx, b2.ListPrefix(listPrefix))
	for iter.Next() {
		obj := iter.Object()

		relPath := strings.TrimPrefix(obj.Name(), b.prefix)
		relPath = strings.TrimPrefix(relPath, "/")

		if strings.Contains(relPath, "/") || !storage.MatchPattern(pattern, relPath) {
			continue
		}

		attrs, err := obj.Attrs(ctx)
		if err != nil {
			// deleted between listing and attrs
			continue
		}

		files = append(files, storage.FileInfo{
			Path:    relPath,
			Size:    attrs.Size,
			ModTime: attrs.UploadTimestamp,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, storage.WrapError(b.name, "list", storage.Classify(err))
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// Stat returns file metadata
func (b *Backend) Stat(ctx context.Context, objectPath string) (*storage.FileInfo, error) {
	attrs, err := b.object(objectPath).Attrs(ctx)
	if err != nil {
		return nil, storage.WrapError(b.name, "stat", mapError(err))
	}

	return &storage.FileInfo{
		Path:    objectPath,
		Size:    attrs.Size,
		ModTime: attrs.UploadTimestamp,
	}, nil
}

// Exists checks if object exists
func (b *Backend) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := b.Stat(ctx, objectPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close releases resources
func (b *Backend) Close() error {
	return nil
}

func mapError(err error) error {
	if b2.IsNotExist(err) {
		return storage.ErrNotFound
	}
	return storage.Classify(err)
}
