package ssh

import (
	"github.com/williamokano/backup-tool/pkg/storage"
)

type Config struct {
	Host          string
	Port          int // Default: 22
	User          string
	Password      string // Optional
	KeyPath       string // Optional: path to private key
	KeyPassphrase string // Optional
	RemotePath    string // Base directory on remote server

	// KnownHosts is the known_hosts file used to verify the server key;
	// defaults to ~/.ssh/known_hosts
	KnownHosts            string
	InsecureIgnoreHostKey bool
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	var (
		cfg Config
		err error
	)

	if cfg.Host, err = storage.OptString(options, "host", true); err != nil {
		return nil, err
	}
	if cfg.User, err = storage.OptString(options, "user", true); err != nil {
		return nil, err
	}
	if cfg.RemotePath, err = storage.OptString(options, "remote_path", true); err != nil {
		return nil, err
	}
	if cfg.Password, err = storage.OptString(options, "password", false); err != nil {
		return nil, err
	}
	if cfg.KeyPath, err = storage.OptString(options, "key_path", false); err != nil {
		return nil, err
	}
	if cfg.KeyPassphrase, err = storage.OptString(options, "key_passphrase", false); err != nil {
		return nil, err
	}
	if cfg.KnownHosts, err = storage.OptString(options, "known_hosts", false); err != nil {
		return nil, err
	}
	if cfg.InsecureIgnoreHostKey, err = storage.OptBool(options, "insecure_ignore_host_key", false); err != nil {
		return nil, err
	}
	if cfg.Port, err = storage.OptInt(options, "port", 22); err != nil {
		return nil, err
	}

	if cfg.Password == "" && cfg.KeyPath == "" {
		return nil, storage.WrapError("ssh", "config", errMissingAuth)
	}

	return &cfg, nil
}
