package backup

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/williamokano/backup-tool/pkg/config"
)

// EnvPgpassFile names the password file read by the dump tool
const EnvPgpassFile = "PGPASSFILE"

// GetPgpassPath returns the password file the dump tool will read.
// Priority: 1) PGPASSFILE, 2) ~/.pgpass. explicit reports whether the path
// came from PGPASSFILE; an explicit path is returned even when missing.
func GetPgpassPath(lookup config.LookupFunc) (path string, explicit bool, err error) {
	if p, ok := lookup(EnvPgpassFile); ok && p != "" {
		return p, true, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get home directory: %w", err)
	}

	standardPath := filepath.Join(homeDir, ".pgpass")
	if _, err := os.Stat(standardPath); err != nil {
		return "", false, fmt.Errorf("no .pgpass file found at %s", standardPath)
	}
	return standardPath, false, nil
}

// ValidatePgpassPermissions checks that .pgpass has correct permissions (0600)
func ValidatePgpassPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat .pgpass file: %w", err)
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		return fmt.Errorf(".pgpass file has incorrect permissions %o, must be 0600", mode)
	}

	return nil
}

// VerifyPgpassEntry checks if a .pgpass file contains an entry for the given connection
func VerifyPgpassEntry(pgpassPath, host, port, database, username string) (bool, error) {
	file, err := os.Open(pgpassPath)
	if err != nil {
		return false, fmt.Errorf("failed to open .pgpass file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// hostname:port:database:username:password
		parts := strings.SplitN(line, ":", 5)
		if len(parts) != 5 {
			continue
		}

		if matchField(parts[0], host) &&
			matchField(parts[1], port) &&
			matchField(parts[2], database) &&
			matchField(parts[3], username) {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("error reading .pgpass file: %w", err)
	}

	return false, nil
}

func matchField(pattern, value string) bool {
	return pattern == "*" || pattern == value
}

// checkPgpass warns about password file problems the dump tool would hit
// silently. It never fails the run.
func (e *Executor) checkPgpass(cfg *config.Config) {
	path, explicit, err := GetPgpassPath(e.lookupEnv)
	if err != nil {
		e.logger.Debug().Err(err).Msg("no password file, relying on server authentication")
		return
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			e.logger.Warn().Str("pgpass_path", path).Msgf("%s points to a missing file", EnvPgpassFile)
		}
		return
	}

	if err := ValidatePgpassPermissions(path); err != nil {
		e.logger.Warn().Err(err).Str("pgpass_path", path).Msg("password file will be ignored by the dump tool")
		return
	}

	user := cfg.Database.User
	if user == "" {
		user = "*"
	}
	found, err := VerifyPgpassEntry(path, cfg.Database.Host, strconv.Itoa(cfg.Database.Port), cfg.Database.Name, user)
	if err != nil {
		e.logger.Warn().Err(err).Str("pgpass_path", path).Msg("failed to read password file")
		return
	}
	if !found {
		e.logger.Warn().Str("pgpass_path", path).Msg("password file has no entry for this connection")
		return
	}
	e.logger.Debug().Str("pgpass_path", path).Msg("using password file for authentication")
}
