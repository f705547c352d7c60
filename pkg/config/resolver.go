package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

// Overrides holds the values given on the command line. A nil pointer means
// the flag was not passed, so lower layers decide.
type Overrides struct {
	BackupDir       *string
	RetentionDays   *int
	DatabaseName    *string
	Timeout         *time.Duration
	LogLevel        *string
	LogFormat       *string
	DryRun          bool
	CheckConnection bool
	ConfigFile      string
	EnvFile         string
}

// ResolveOptions is the input of Resolve
type ResolveOptions struct {
	Overrides Overrides

	// Lookup reads environment variables; nil means the process environment
	Lookup LookupFunc

	// ScriptDir is the directory of the running executable; the default
	// backup directory is ScriptDir/../backups
	ScriptDir string

	Now func() time.Time
}

// Resolve merges defaults, the optional config file, DATABASE_URL,
// environment variables (including an optional env file) and command line
// overrides into a Config. Later layers win.
func Resolve(opts ResolveOptions) (*Config, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = ProcessEnv()
	}

	if opts.Overrides.EnvFile != "" {
		layered, err := withEnvFile(lookup, opts.Overrides.EnvFile)
		if err != nil {
			return nil, err
		}
		lookup = layered
	}

	cfg := &Config{
		BackupDir:     DefaultBackupDir(opts.ScriptDir),
		RetentionDays: DefaultRetentionDays,
		Database: DatabaseConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		DumpTool: DefaultDumpTool,
	}

	configFile := opts.Overrides.ConfigFile
	if configFile == "" {
		configFile, _ = lookupNonEmpty(lookup, EnvConfigFile)
	}
	if configFile != "" {
		fc, err := ParseConfig(configFile)
		if err != nil {
			return nil, err
		}
		if err := applyFile(cfg, fc); err != nil {
			return nil, err
		}
	}

	if raw, ok := lookupNonEmpty(lookup, EnvDatabaseURL); ok {
		conn, err := parseDatabaseURL(raw)
		if err != nil {
			return nil, err
		}
		applyConnectionURL(cfg, conn)
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	applyOverrides(cfg, opts.Overrides)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cfg.Timestamp = now()

	return cfg, nil
}

// DefaultBackupDir returns <scriptDir>/../backups
func DefaultBackupDir(scriptDir string) string {
	if scriptDir == "" {
		scriptDir = "."
	}
	return filepath.Clean(filepath.Join(scriptDir, "..", DefaultBackupDirName))
}

func applyFile(cfg *Config, fc *FileConfig) error {
	if fc.BackupDir != "" {
		cfg.BackupDir = fc.BackupDir
	}
	if fc.RetentionDays != nil {
		cfg.RetentionDays = *fc.RetentionDays
	}
	if fc.Database.Name != "" {
		cfg.Database.Name = fc.Database.Name
	}
	if fc.Database.User != "" {
		cfg.Database.User = fc.Database.User
	}
	if fc.Database.Host != "" {
		cfg.Database.Host = fc.Database.Host
	}
	if fc.Database.Port > 0 {
		cfg.Database.Port = fc.Database.Port
	}
	if fc.Database.SSLMode != "" {
		cfg.Database.SSLMode = fc.Database.SSLMode
	}
	if fc.Dump.Tool != "" {
		cfg.DumpTool = fc.Dump.Tool
	}
	if fc.Dump.Timeout != "" {
		timeout, err := ParseTimeout(fc.Dump.Timeout)
		if err != nil || timeout < 0 {
			return fmt.Errorf("%w: dump.timeout %q is not a duration or a number of seconds", ErrInvalidConfig, fc.Dump.Timeout)
		}
		cfg.Timeout = timeout
	}
	cfg.Log = fc.Log
	cfg.MaxConcurrentUploads = fc.MaxConcurrentUploads
	cfg.Destinations = fc.Destinations
	return nil
}

func applyConnectionURL(cfg *Config, conn *connectionURL) {
	if conn.Name != "" {
		cfg.Database.Name = conn.Name
	}
	if conn.User != "" {
		cfg.Database.User = conn.User
	}
	if conn.Host != "" {
		cfg.Database.Host = conn.Host
	}
	if conn.Port > 0 {
		cfg.Database.Port = conn.Port
	}
	if conn.Password != "" {
		cfg.Password = conn.Password
	}
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	if v, ok := lookupNonEmpty(lookup, EnvDatabaseName); ok {
		cfg.Database.Name = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvDatabaseUser); ok {
		cfg.Database.User = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvDatabaseHost); ok {
		cfg.Database.Host = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvDatabasePort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrUsage, EnvDatabasePort, v)
		}
		cfg.Database.Port = port
	}
	if v, ok := lookupNonEmpty(lookup, EnvPassword); ok {
		cfg.Password = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvSSLMode); ok {
		cfg.Database.SSLMode = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvBackupDir); ok {
		cfg.BackupDir = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvRetention); ok {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrUsage, EnvRetention, v)
		}
		cfg.RetentionDays = days
	}
	if v, ok := lookupNonEmpty(lookup, EnvTimeout); ok {
		timeout, err := ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUsage, EnvTimeout, err)
		}
		cfg.Timeout = timeout
	}
	if v, ok := lookupNonEmpty(lookup, EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvLogFormat); ok {
		cfg.Log.Format = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvLogFile); ok {
		cfg.Log.File = v
	}
	return nil
}

func applyOverrides(cfg *Config, o Overrides) {
	if o.BackupDir != nil {
		cfg.BackupDir = *o.BackupDir
	}
	if o.RetentionDays != nil {
		cfg.RetentionDays = *o.RetentionDays
	}
	if o.DatabaseName != nil {
		cfg.Database.Name = *o.DatabaseName
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.LogLevel != nil {
		cfg.Log.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Log.Format = *o.LogFormat
	}
	cfg.DryRun = o.DryRun
	cfg.CheckConnection = o.CheckConnection
}

// ParseTimeout accepts Go durations ("90s", "1h30m") or bare seconds
func ParseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) validate() error {
	if c.Database.Name == "" {
		return fmt.Errorf("%w: database name is required (set %s, %s or use --name)", ErrUsage, EnvDatabaseName, EnvDatabaseURL)
	}
	if c.BackupDir == "" {
		return fmt.Errorf("%w: backup directory must not be empty", ErrUsage)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("%w: retention must be a non-negative number of days, got %d", ErrUsage, c.RetentionDays)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrUsage, c.Database.Port)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative, got %s", ErrUsage, c.Timeout)
	}
	switch c.GetLogLevel() {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrUsage, c.Log.Level)
	}
	switch c.GetLogFormat() {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrUsage, c.Log.Format)
	}
	return nil
}
