package s3

import (
	"strings"

	"github.com/williamokano/backup-tool/pkg/storage"
)

// Config holds S3 configuration
type Config struct {
	Endpoint        string // Optional: MinIO, LocalStack, other S3-compatible stores
	Region          string
	Bucket          string
	Prefix          string // Object key prefix
	AccessKeyID     string // Empty means the default AWS credential chain
	SecretAccessKey string
	ForcePathStyle  bool
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	var (
		cfg Config
		err error
	)

	if cfg.Endpoint, err = storage.OptString(options, "endpoint", false); err != nil {
		return nil, err
	}
	if cfg.Region, err = storage.OptString(options, "region", true); err != nil {
		return nil, err
	}
	if cfg.Bucket, err = storage.OptString(options, "bucket", true); err != nil {
		return nil, err
	}
	if cfg.Prefix, err = storage.OptString(options, "prefix", false); err != nil {
		return nil, err
	}
	if cfg.AccessKeyID, err = storage.OptString(options, "access_key_id", false); err != nil {
		return nil, err
	}
	if cfg.SecretAccessKey, err = storage.OptString(options, "secret_access_key", false); err != nil {
		return nil, err
	}
	if cfg.ForcePathStyle, err = storage.OptBool(options, "force_path_style", false); err != nil {
		return nil, err
	}

	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &cfg, nil
}
