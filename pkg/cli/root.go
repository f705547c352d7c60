package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/williamokano/backup-tool/pkg/backup"
	"github.com/williamokano/backup-tool/pkg/config"
)

// Deps are the process-level collaborators of a run. Zero values are
// replaced with the real ones.
type Deps struct {
	Runner    backup.Runner
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv config.LookupFunc
	Now       func() time.Time

	// ScriptDir anchors the default backup directory (ScriptDir/../backups);
	// defaults to the directory of the executable
	ScriptDir string
}

func (d Deps) withDefaults() Deps {
	if d.Runner == nil {
		d.Runner = backup.NewExecRunner()
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.LookupEnv == nil {
		d.LookupEnv = config.ProcessEnv()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ScriptDir == "" {
		d.ScriptDir = executableDir()
	}
	return d
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// fatalError is a run failure that has already been reported through the
// logger
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

type flags struct {
	dir             string
	retention       int
	name            string
	dryRun          bool
	configFile      string
	envFile         string
	timeout         string
	checkConnection bool
	logLevel        string
	logFormat       string
}

// NewRootCommand builds the backup-tool command
func NewRootCommand(deps Deps) *cobra.Command {
	deps = deps.withDefaults()
	var f flags

	cmd := &cobra.Command{
		Use:   "backup-tool",
		Short: "Back up a PostgreSQL database and prune old backups",
		Long: `backup-tool dumps a PostgreSQL database with pg_dump into a timestamped
file (backup_YYYYMMDD_HHMMSS.sql, custom format), verifies the result,
optionally copies it to offsite destinations, and removes backups older
than the retention period.

Environment variables (overridden by flags):
  POSTGRES_DB, POSTGRES_USER, POSTGRES_HOST, POSTGRES_PORT, DATABASE_URL
  PGPASSWORD (passed to pg_dump only), PGSSLMODE
  BACKUP_DIR, RETENTION_DAYS, BACKUP_TIMEOUT, BACKUP_CONFIG
  BACKUP_LOG_LEVEL, BACKUP_LOG_FORMAT, BACKUP_LOG_FILE`,
		Example: `  # Back up "app" into /var/backups/app, keeping 14 days
  backup-tool -n app -d /var/backups/app -r 14

  # Show what would happen without touching anything
  backup-tool --dry-run -d /tmp/b -r 30 -n mydb`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: unexpected argument %q", config.ErrUsage, args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := f.overrides(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), overrides, deps)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", config.ErrUsage, err)
	})

	fs := cmd.Flags()
	fs.SortFlags = false
	fs.StringVarP(&f.dir, "dir", "d", "", "backup directory (default <executable dir>/../backups)")
	fs.IntVarP(&f.retention, "retention", "r", config.DefaultRetentionDays, "retention period in days, 0 keeps everything")
	fs.StringVarP(&f.name, "name", "n", "", "database name")
	fs.BoolVar(&f.dryRun, "dry-run", false, "show what would be done without doing it")
	fs.StringVarP(&f.configFile, "config", "c", "", "optional JSON or YAML config file")
	fs.StringVar(&f.envFile, "env-file", "", "load environment variables from a dotenv file")
	fs.StringVar(&f.timeout, "timeout", "", "abort the dump after this long (e.g. 30m or 1800); 0 waits forever")
	fs.BoolVar(&f.checkConnection, "check-connection", false, "ping the database before dumping")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: console, json")

	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	return cmd
}

// overrides keeps only the flags given on the command line so that
// environment variables and defaults can fill the rest
func (f *flags) overrides(cmd *cobra.Command) (config.Overrides, error) {
	o := config.Overrides{
		DryRun:          f.dryRun,
		CheckConnection: f.checkConnection,
		ConfigFile:      f.configFile,
		EnvFile:         f.envFile,
	}

	changed := cmd.Flags().Changed
	if changed("dir") {
		o.BackupDir = &f.dir
	}
	if changed("retention") {
		o.RetentionDays = &f.retention
	}
	if changed("name") {
		o.DatabaseName = &f.name
	}
	if changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if changed("log-format") {
		o.LogFormat = &f.logFormat
	}
	if changed("timeout") {
		timeout, err := config.ParseTimeout(f.timeout)
		if err != nil {
			return o, fmt.Errorf("%w: invalid --timeout %q", config.ErrUsage, f.timeout)
		}
		o.Timeout = &timeout
	}

	return o, nil
}

// Execute runs the command with args and returns the process exit code
func Execute(ctx context.Context, args []string, deps Deps) int {
	deps = deps.withDefaults()

	cmd := NewRootCommand(deps)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var fatal *fatalError
	if errors.As(err, &fatal) {
		return 1
	}

	fmt.Fprintf(deps.Stderr, "Error: %v\n", err)
	if errors.Is(err, config.ErrUsage) {
		fmt.Fprintln(deps.Stderr)
		fmt.Fprint(deps.Stderr, cmd.UsageString())
	}
	return 1
}
