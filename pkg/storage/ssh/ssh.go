package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/williamokano/backup-tool/pkg/storage"
)

const dialTimeout = 30 * time.Second

var errMissingAuth = fmt.Errorf("%w: one of password or key_path is required", storage.ErrInvalidConfig)

type Backend struct {
	name       string
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	remotePath string
}

func init() {
	storage.RegisterBackend("ssh", func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(ctx, cfg)
	})
}

// New connects to the SFTP server and ensures the remote directory exists
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	sshCfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, err
	}

	clientConfig, err := clientConfig(sshCfg)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	addr := net.JoinHostPort(sshCfg.Host, strconv.Itoa(sshCfg.Port))

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "connect", fmt.Errorf("%w: %v", storage.ErrConnFailed, err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, storage.WrapError(cfg.Name, "handshake", fmt.Errorf("%w: %v", storage.ErrAuthFailed, err))
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, storage.WrapError(cfg.Name, "sftp init", err)
	}

	if err := sftpClient.MkdirAll(sshCfg.RemotePath); err != nil {
		sftpClient.Close()
		sshClient.Close()
		return nil, storage.WrapError(cfg.Name, "mkdir", mapError(err))
	}

	return &Backend{
		name:       cfg.Name,
		sshClient:  sshClient,
		sftpClient: sftpClient,
		remotePath: sshCfg.RemotePath,
	}, nil
}

func clientConfig(cfg *Config) (*ssh.ClientConfig, error) {
	hostKeyCallback, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            cfg.User,
		HostKeyCallback: hostKeyCallback,
		Timeout:         dialTimeout,
	}

	if cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}

		var signer ssh.Signer
		if cfg.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(cfg.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse SSH key: %v", storage.ErrInvalidConfig, err)
		}

		clientConfig.Auth = append(clientConfig.Auth, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		clientConfig.Auth = append(clientConfig.Auth, ssh.Password(cfg.Password))
	}

	return clientConfig, nil
}

func hostKeyCallback(cfg *Config) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	file := cfg.KnownHosts
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate known_hosts: %w", err)
		}
		file = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load known_hosts %s: %v", storage.ErrInvalidConfig, file, err)
	}
	return cb, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return "ssh" }

// Write uploads a file via SFTP under a temporary name, then renames it
func (b *Backend) Write(ctx context.Context, sourcePath, destPath string) error {
	return storage.WithRetry(ctx, storage.DefaultRetryConfig(), func() error {
		localFile, err := os.Open(sourcePath)
		if err != nil {
			return err
		}
		defer localFile.Close()

		remotePath := path.Join(b.remotePath, destPath)
		if err := b.sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
			return storage.WrapError(b.name, "mkdir", mapError(err))
		}

		tmpPath := remotePath + ".part"
		remoteFile, err := b.sftpClient.Create(tmpPath)
		if err != nil {
			return storage.WrapError(b.name, "create", mapError(err))
		}

		if _, err := io.Copy(remoteFile, localFile); err != nil {
			remoteFile.Close()
			b.sftpClient.Remove(tmpPath)
			return storage.WrapError(b.name, "upload", mapError(err))
		}
		if err := remoteFile.Close(); err != nil {
			b.sftpClient.Remove(tmpPath)
			return storage.WrapError(b.name, "upload", mapError(err))
		}

		if err := b.sftpClient.PosixRename(tmpPath, remotePath); err != nil {
			b.sftpClient.Remove(tmpPath)
			return storage.WrapError(b.name, "rename", mapError(err))
		}

		return nil
	})
}

// Delete removes a file via SFTP
func (b *Backend) Delete(ctx context.Context, filePath string) error {
	if err := b.sftpClient.Remove(path.Join(b.remotePath, filePath)); err != nil {
		return storage.WrapError(b.name, "delete", mapError(err))
	}
	return nil
}

// List returns the regular files in the remote directory matching pattern
func (b *Backend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	entries, err := b.sftpClient.ReadDir(b.remotePath)
	if err != nil {
		return nil, storage.WrapError(b.name, "list", mapError(err))
	}

	// ReadDir returns entries sorted by name
	var files []storage.FileInfo
	for _, entry := range entries {
		if !entry.Mode().IsRegular() || !storage.MatchPattern(pattern, entry.Name()) {
			continue
		}

		files = append(files, storage.FileInfo{
			Path:    entry.Name(),
			Size:    entry.Size(),
			ModTime: entry.ModTime(),
		})
	}

	return files, nil
}

// Stat returns file metadata
func (b *Backend) Stat(ctx context.Context, filePath string) (*storage.FileInfo, error) {
	info, err := b.sftpClient.Stat(path.Join(b.remotePath, filePath))
	if err != nil {
		return nil, storage.WrapError(b.name, "stat", mapError(err))
	}

	return &storage.FileInfo{
		Path:    filePath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Exists checks if file exists
func (b *Backend) Exists(ctx context.Context, filePath string) (bool, error) {
	_, err := b.Stat(ctx, filePath)
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
	if b.sftpClient != nil {
		b.sftpClient.Close()
	}
	if b.sshClient != nil {
		return b.sshClient.Close()
	}
	return nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", storage.ErrPermissionDenied, err)
	default:
		return storage.Classify(err)
	}
}
