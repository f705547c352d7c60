package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables consulted during resolution
const (
	EnvDatabaseName = "POSTGRES_DB"
	EnvDatabaseUser = "POSTGRES_USER"
	EnvDatabaseHost = "POSTGRES_HOST"
	EnvDatabasePort = "POSTGRES_PORT"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvPassword     = "PGPASSWORD"
	EnvSSLMode      = "PGSSLMODE"
	EnvBackupDir    = "BACKUP_DIR"
	EnvRetention    = "RETENTION_DAYS"
	EnvTimeout      = "BACKUP_TIMEOUT"
	EnvConfigFile   = "BACKUP_CONFIG"
	EnvLogLevel     = "BACKUP_LOG_LEVEL"
	EnvLogFormat    = "BACKUP_LOG_FORMAT"
	EnvLogFile      = "BACKUP_LOG_FILE"
)

// LookupFunc has the signature of os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ProcessEnv reads the process environment
func ProcessEnv() LookupFunc {
	return os.LookupEnv
}

// MapEnv serves lookups from a fixed map; handy in tests
func MapEnv(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

// withEnvFile layers the variables of a dotenv file beneath primary.
// Variables already present in primary always win.
func withEnvFile(primary LookupFunc, path string) (LookupFunc, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read env file %s: %v", ErrUsage, path, err)
	}

	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}

// lookupNonEmpty treats empty variables as unset
func lookupNonEmpty(lookup LookupFunc, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// connectionURL is the parsed form of DATABASE_URL
type connectionURL struct {
	Name     string
	User     string
	Password string
	Host     string
	Port     int
}

// parseDatabaseURL accepts postgres:// and postgresql:// URLs
func parseDatabaseURL(raw string) (*connectionURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", ErrUsage, EnvDatabaseURL, err)
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("%w: %s must use the postgres:// scheme, got %q", ErrUsage, EnvDatabaseURL, u.Scheme)
	}

	conn := &connectionURL{
		Name: strings.TrimPrefix(u.Path, "/"),
		Host: u.Hostname(),
	}

	if u.User != nil {
		conn.User = u.User.Username()
		conn.Password, _ = u.User.Password()
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid port in %s: %q", ErrUsage, EnvDatabaseURL, p)
		}
		conn.Port = port
	}

	return conn, nil
}
