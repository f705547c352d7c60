package backup

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/williamokano/backup-tool/pkg/config"
)

const connectTimeout = 10 * time.Second

// ConnectionDSN renders the lib/pq connection URL for cfg. lib/pq knows
// disable, require, verify-ca and verify-full; the libpq modes allow and
// prefer fall back to disable.
func ConnectionDSN(cfg *config.Config) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Database.Host, strconv.Itoa(cfg.Database.Port)),
		Path:   "/" + cfg.Database.Name,
	}

	switch {
	case cfg.Database.User != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.Database.User, cfg.Password)
	case cfg.Database.User != "":
		u.User = url.User(cfg.Database.User)
	}

	sslmode := cfg.Database.SSLMode
	switch sslmode {
	case "", "allow", "prefer":
		sslmode = "disable"
	}

	q := url.Values{}
	q.Set("sslmode", sslmode)
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
	u.RawQuery = q.Encode()

	return u.String()
}

// CheckConnection opens a connection to the configured database and pings it
func (e *Executor) CheckConnection(ctx context.Context, cfg *config.Config) error {
	db, err := sql.Open("postgres", ConnectionDSN(cfg))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionCheck, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %s:%d/%s: %v", ErrConnectionCheck,
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, err)
	}

	e.logger.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Msg("database connection check passed")
	return nil
}
