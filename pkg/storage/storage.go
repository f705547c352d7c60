package storage

import (
	"context"
	"time"
)

// Backend is a place backup artifacts are kept: the local backup directory
// or an offsite destination
type Backend interface {
	// Name returns a human-readable name for this backend (e.g., "local", "s3_offsite")
	Name() string

	// Type returns the backend type (local, s3, backblaze, ssh)
	Type() string

	// Write copies a file from the local filesystem to the backend
	// sourcePath: path to local file
	// destPath: relative path in backend (e.g., "backup_20241219_143005.sql")
	Write(ctx context.Context, sourcePath string, destPath string) error

	// Delete removes a file from the backend
	Delete(ctx context.Context, path string) error

	// List returns the regular files whose name matches the glob pattern,
	// sorted by name. A missing location yields ErrNotFound.
	List(ctx context.Context, pattern string) ([]FileInfo, error)

	// Stat returns metadata about a specific file
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Exists checks if a file exists in the backend
	Exists(ctx context.Context, path string) (bool, error)

	// Close releases resources (connections, sessions)
	Close() error
}

// FileInfo represents metadata about a stored file
type FileInfo struct {
	Path    string    // Relative path in backend
	Size    int64     // Size in bytes
	ModTime time.Time // Last modification time
}

// Config represents storage backend configuration
type Config struct {
	Name    string                 `json:"name"`    // User-friendly name (e.g., "s3_primary")
	Type    string                 `json:"type"`    // Backend type: local, s3, backblaze, ssh
	Enabled bool                   `json:"enabled"` // Whether this backend is active
	Options map[string]interface{} `json:"options"` // Backend-specific options
}

// Result represents outcome of a storage operation
type Result struct {
	BackendName string
	BackendType string
	Success     bool
	Error       error
	Duration    time.Duration
}
