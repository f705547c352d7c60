package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/williamokano/backup-tool/pkg/config"
)

// Outcome describes a finished (or simulated) backup
type Outcome struct {
	Path     string
	Size     int64
	Command  Command
	DryRun   bool
	Duration time.Duration
}

// Executor produces one verified artifact per invocation
type Executor struct {
	runner    Runner
	logger    zerolog.Logger
	lookupEnv config.LookupFunc
}

// NewExecutor creates an executor that starts the dump tool through runner
func NewExecutor(runner Runner, logger zerolog.Logger) *Executor {
	return &Executor{
		runner:    runner,
		logger:    logger,
		lookupEnv: config.ProcessEnv(),
	}
}

// WithLookupEnv replaces the environment used for the pgpass checks
func (e *Executor) WithLookupEnv(lookup config.LookupFunc) *Executor {
	e.lookupEnv = lookup
	return e
}

// DumpCommand builds the dump tool invocation writing to path
func DumpCommand(cfg *config.Config, path string) Command {
	args := []string{
		"--host", cfg.Database.Host,
		"--port", strconv.Itoa(cfg.Database.Port),
	}
	if cfg.Database.User != "" {
		args = append(args, "--username", cfg.Database.User)
	}
	args = append(args,
		"--no-password",
		"--format", "custom",
		"--file", path,
		"--dbname", cfg.Database.Name,
	)

	cmd := Command{Name: cfg.DumpTool, Args: args}
	if cfg.Password != "" {
		cmd.Env = []string{"PGPASSWORD=" + cfg.Password}
	}
	return cmd
}

// Preflight verifies that the dump tool can be found. It runs before any
// other work, in dry-run mode too.
func (e *Executor) Preflight(cfg *config.Config) error {
	path, err := e.runner.LookPath(cfg.DumpTool)
	if err != nil {
		return fmt.Errorf("%w: %s is not installed or not in PATH", ErrDumpToolMissing, cfg.DumpTool)
	}
	e.logger.Debug().Str("dump_tool", path).Msg("found dump tool")

	if cfg.Password == "" {
		e.checkPgpass(cfg)
	}
	return nil
}

// Run dumps the configured database into a new artifact and verifies it.
// In dry-run mode it only reports the command it would run.
func (e *Executor) Run(ctx context.Context, cfg *config.Config) (*Outcome, error) {
	path := ArtifactPath(cfg.BackupDir, cfg.Timestamp)
	cmd := DumpCommand(cfg, path)
	outcome := &Outcome{Path: path, Command: cmd, DryRun: cfg.DryRun}

	log := e.logger.With().Str("database", cfg.Database.Name).Logger()

	if cfg.DryRun {
		log.Info().Msgf("[DRY RUN] would run: %s", cmd.String())
		return outcome, nil
	}

	if err := ensureDir(cfg.BackupDir); err != nil {
		return nil, err
	}

	if _, err := os.Lstat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrArtifactExists, path)
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Msgf("Starting backup of database %s", cfg.Database.Name)

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.runner.Run(runCtx, cmd)
	outcome.Duration = time.Since(start)

	if err != nil {
		removePartial(log, path)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s timed out after %s", ErrDumpFailed, cfg.DumpTool, cfg.Timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrDumpFailed, err)
	}

	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		log.Debug().Str("stderr", stderr).Msg("dump tool output")
	}

	if res.ExitCode != 0 {
		removePartial(log, path)
		return nil, fmt.Errorf("%w: %s exited with code %d: %s",
			ErrDumpFailed, cfg.DumpTool, res.ExitCode, lastLine(res.Stderr))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if info.Size() == 0 {
		removePartial(log, path)
		return nil, fmt.Errorf("%w: %s", ErrEmptyArtifact, path)
	}

	outcome.Size = info.Size()
	log.Info().
		Str("path", path).
		Int64("size_bytes", info.Size()).
		Dur("duration", outcome.Duration).
		Msgf("Backup completed successfully: %s (%s)", path, humanize.Bytes(uint64(info.Size())))

	return outcome, nil
}

// ensureDir creates dir when absent and checks that files can be created in it
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", ErrBackupDir, dir, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackupDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrBackupDir, dir)
	}

	check, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %v", ErrBackupDir, dir, err)
	}
	check.Close()
	os.Remove(check.Name())

	return nil
}

// removePartial deletes output left by a failed dump. Safe because Run
// refuses to start when the artifact path already exists.
func removePartial(log zerolog.Logger, path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Warn().Str("path", path).Msg("removed partial backup output")
	case !errors.Is(err, os.ErrNotExist):
		log.Warn().Err(err).Str("path", path).Msg("failed to remove partial backup output")
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
