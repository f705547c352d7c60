package config

import (
	"errors"
	"time"
)

const (
	DefaultRetentionDays        = 7
	DefaultHost                 = "localhost"
	DefaultPort                 = 5432
	DefaultDumpTool             = "pg_dump"
	DefaultMaxConcurrentUploads = 3
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "console"

	// DefaultBackupDirName is resolved relative to the directory holding the executable
	DefaultBackupDirName = "backups"
)

var (
	// ErrUsage marks errors caused by invalid flags, arguments or values.
	ErrUsage = errors.New("usage error")

	// ErrInvalidConfig marks an unreadable or schema-invalid config file.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DatabaseConfig holds the connection parameters handed to the dump tool
type DatabaseConfig struct {
	Name    string `mapstructure:"name"`
	User    string `mapstructure:"user"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	SSLMode string `mapstructure:"sslmode"` // only used by the connection check
}

// LogConfig controls the logger built by pkg/logger
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
	File   string `mapstructure:"file"`   // optional rotating JSON log file
}

// Destination is an offsite storage target the artifact is copied to
type Destination struct {
	Name    string                 `mapstructure:"name"`
	Type    string                 `mapstructure:"type"` // local, s3, backblaze, ssh
	Enabled *bool                  `mapstructure:"enabled"`
	Options map[string]interface{} `mapstructure:"options"`
}

// IsEnabled reports whether the destination is active; omitted means enabled
func (d Destination) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Config is the resolved configuration of one invocation. It is built once
// by Resolve and never modified afterwards.
type Config struct {
	BackupDir       string
	RetentionDays   int
	Database        DatabaseConfig
	DryRun          bool
	CheckConnection bool

	// Timeout bounds the dump tool; zero waits indefinitely
	Timeout  time.Duration
	DumpTool string

	// Password is exported to the dump tool as PGPASSWORD. Never log it.
	Password string

	// Timestamp is taken at resolution time and names the artifact
	Timestamp time.Time

	Log                  LogConfig
	Destinations         []Destination
	MaxConcurrentUploads int
}

// EnabledDestinations returns the destinations that should receive the artifact
func (c *Config) EnabledDestinations() []Destination {
	var enabled []Destination
	for _, d := range c.Destinations {
		if d.IsEnabled() {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

// GetMaxConcurrentUploads returns the upload fan-out limit (defaults to 3)
func (c *Config) GetMaxConcurrentUploads() int {
	if c.MaxConcurrentUploads > 0 {
		return c.MaxConcurrentUploads
	}
	return DefaultMaxConcurrentUploads
}

// GetLogLevel returns the log level (defaults to info)
func (c *Config) GetLogLevel() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return DefaultLogLevel
}

// GetLogFormat returns the log format (defaults to console)
func (c *Config) GetLogFormat() string {
	if c.Log.Format != "" {
		return c.Log.Format
	}
	return DefaultLogFormat
}
