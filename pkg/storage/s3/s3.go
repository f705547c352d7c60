package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/williamokano/backup-tool/pkg/storage"
)

type Backend struct {
	name     string
	client   *s3.Client
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

func init() {
	storage.RegisterBackend("s3", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(ctx, cfg)
	})
}

// New creates a new S3 backend and checks that the bucket is reachable
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	s3Cfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(s3Cfg.Region)}
	if s3Cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Cfg.AccessKeyID, s3Cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3Cfg.Endpoint)
		}
		o.UsePathStyle = s3Cfg.ForcePathStyle
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s3Cfg.Bucket),
	})
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "connection test", fmt.Errorf("%w: %v", storage.ErrConnFailed, err))
	}

	return &Backend{
		name:     cfg.Name,
		client:   client,
		bucket:   s3Cfg.Bucket,
		prefix:   s3Cfg.Prefix,
		uploader: manager.NewUploader(client),
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "s3" }

func (b *Backend) key(name string) string {
	return path.Join(b.prefix, name)
}

// Write uploads a file to S3
func (b *Backend) Write(ctx context.Context, sourcePath, destPath string) error {
	return storage.WithRetry(ctx, storage.DefaultRetryConfig(), func() error {
		file, err := os.Open(sourcePath)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = b.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(destPath)),
			Body:   file,
		})
		if err != nil {
			return storage.WrapError(b.name, "upload", storage.Classify(err))
		}

		return nil
	})
}

// Delete removes an object from S3
func (b *Backend) Delete(ctx context.Context, objectPath string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(objectPath)),
	})
	if err != nil {
		return storage.WrapError(b.name, "delete", storage.Classify(err))
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

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(listPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storage.WrapError(b.name, "list", storage.Classify(err))
		}

		for _, obj := range page.Contents {
			relPath := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			relPath = strings.TrimPrefix(relPath, "/")

			if strings.Contains(relPath, "/") || !storage.MatchPattern(pattern, relPath) {
				continue
			}

			files = append(files, storage.FileInfo{
				Path:    relPath,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// Stat returns metadata about an object
func (b *Backend) Stat(ctx context.Context, objectPath string) (*storage.FileInfo, error) {
	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(objectPath)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, storage.WrapError(b.name, "stat", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "stat", storage.Classify(err))
	}

	return &storage.FileInfo{
		Path:    objectPath,
		Size:    aws.ToInt64(result.ContentLength),
		ModTime: aws.ToTime(result.LastModified),
	}, nil
}

// Exists checks if an object exists
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

// Close is a no-op for S3
func (b *Backend) Close() error {
	return nil
}
