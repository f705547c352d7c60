package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// MultiUploader copies an artifact to several backends in parallel
type MultiUploader struct {
	logger        zerolog.Logger
	maxConcurrent int64
}

// NewMultiUploader creates an uploader running at most maxConcurrent
// uploads at a time; values below 1 mean 1
func NewMultiUploader(logger zerolog.Logger, maxConcurrent int) *MultiUploader {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &MultiUploader{logger: logger, maxConcurrent: int64(maxConcurrent)}
}

// Upload writes sourcePath to destPath on every backend. One Result per
// backend is returned in the order of backends; a failing backend never
// stops the others. An upload only succeeds when the stored copy has the
// size of sourcePath, and an existing destPath is never overwritten.
func (m *MultiUploader) Upload(ctx context.Context, backends []Backend, sourcePath, destPath string) []Result {
	results := make([]Result, len(backends))

	info, err := os.Stat(sourcePath)
	if err != nil {
		for i, b := range backends {
			results[i] = Result{
				BackendName: b.Name(),
				BackendType: b.Type(),
				Error:       fmt.Errorf("failed to stat source %s: %w", sourcePath, err),
			}
		}
		return results
	}

	sem := semaphore.NewWeighted(m.maxConcurrent)

	var g errgroup.Group
	for i, backend := range backends {
		g.Go(func() error {
			results[i] = m.uploadOne(ctx, sem, backend, sourcePath, destPath, info.Size())
			return nil
		})
	}
	g.Wait()

	return results
}

func (m *MultiUploader) uploadOne(ctx context.Context, sem *semaphore.Weighted, b Backend, sourcePath, destPath string, size int64) Result {
	result := Result{BackendName: b.Name(), BackendType: b.Type()}

	if err := sem.Acquire(ctx, 1); err != nil {
		result.Error = err
		return result
	}
	defer sem.Release(1)

	m.logger.Debug().
		Str("backend", result.BackendName).
		Str("type", result.BackendType).
		Str("file", destPath).
		Msg("starting upload")

	start := time.Now()
	err := m.copyTo(ctx, b, sourcePath, destPath, size)
	result.Duration = time.Since(start)
	result.Success = err == nil
	result.Error = err

	if err != nil {
		m.logger.Error().
			Err(err).
			Str("backend", result.BackendName).
			Dur("duration", result.Duration).
			Msg("upload failed")
	} else {
		m.logger.Info().
			Str("backend", result.BackendName).
			Dur("duration", result.Duration).
			Msgf("Uploaded %s to %s", destPath, result.BackendName)
	}

	return result
}

// copyTo writes the artifact and checks the stored copy against its source
func (m *MultiUploader) copyTo(ctx context.Context, b Backend, sourcePath, destPath string, size int64) error {
	exists, err := b.Exists(ctx, destPath)
	if err != nil {
		return err
	}
	if exists {
		return WrapError(b.Name(), "write", fmt.Errorf("%w: %s", ErrAlreadyExists, destPath))
	}

	if err := b.Write(ctx, sourcePath, destPath); err != nil {
		return err
	}

	stored, err := b.Stat(ctx, destPath)
	if err != nil {
		return WrapError(b.Name(), "verify", fmt.Errorf("%w: %v", ErrIncompleteCopy, err))
	}
	if stored.Size != size {
		return WrapError(b.Name(), "verify", fmt.Errorf("%w: %s is %d bytes, expected %d",
			ErrIncompleteCopy, destPath, stored.Size, size))
	}
	return nil
}
