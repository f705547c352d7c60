package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// FileConfig is the optional on-disk configuration (JSON or YAML). Every
// field is a fallback beneath environment variables and flags.
type FileConfig struct {
	BackupDir     string         `mapstructure:"backup_dir"`
	RetentionDays *int           `mapstructure:"retention_days"`
	Database      DatabaseConfig `mapstructure:"database"`
	Dump          struct {
		Tool string `mapstructure:"tool"`

		// Timeout is a Go duration or a number of seconds; integers in the
		// file arrive here as their decimal string
		Timeout string `mapstructure:"timeout"`
	} `mapstructure:"dump"`
	Log                  LogConfig     `mapstructure:"log"`
	MaxConcurrentUploads int           `mapstructure:"max_concurrent_uploads"`
	Destinations         []Destination `mapstructure:"destinations"`
}

// ParseConfig reads, validates and decodes a configuration file. The format
// is taken from the file extension.
func ParseConfig(configFile string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrInvalidConfig, configFile, err)
	}

	if err := Validate(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configFile, err)
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config file %s: %v", ErrInvalidConfig, configFile, err)
	}

	return &fc, nil
}
