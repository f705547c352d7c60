package backblaze

import (
	"strings"

	"github.com/williamokano/backup-tool/pkg/storage"
)

type Config struct {
	AccountID      string // key ID of an application key
	ApplicationKey string
	BucketName     string
	Prefix         string
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	var (
		cfg Config
		err error
	)

	if cfg.AccountID, err = storage.OptString(options, "account_id", true); err != nil {
		return nil, err
	}
	if cfg.ApplicationKey, err = storage.OptString(options, "application_key", true); err != nil {
		return nil, err
	}
	if cfg.BucketName, err = storage.OptString(options, "bucket_name", true); err != nil {
		return nil, err
	}
	if cfg.Prefix, err = storage.OptString(options, "prefix", false); err != nil {
		return nil, err
	}

	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &cfg, nil
}
