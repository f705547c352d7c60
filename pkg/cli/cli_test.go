package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/williamokano/backup-tool/pkg/backup"
	"github.com/williamokano/backup-tool/pkg/backup/mocks"
	"github.com/williamokano/backup-tool/pkg/cli"
	"github.com/williamokano/backup-tool/pkg/config"
	"github.com/williamokano/backup-tool/pkg/retention"
)

var now = time.Date(2025, 3, 30, 12, 0, 0, 0, time.UTC)

type harness struct {
	runner *mocks.MockRunner
	stdout bytes.Buffer
	stderr bytes.Buffer
	env    map[string]string
}

func newHarness(t *testing.T) *harness {
	return &harness{
		runner: mocks.NewMockRunner(t),
		env:    map[string]string{config.EnvPassword: "secret"},
	}
}

func (h *harness) execute(args ...string) int {
	return cli.Execute(context.Background(), args, cli.Deps{
		Runner:    h.runner,
		Stdout:    &h.stdout,
		Stderr:    &h.stderr,
		LookupEnv: config.MapEnv(h.env),
		Now:       func() time.Time { return now },
		ScriptDir: "/opt/backup-tool/bin",
	})
}

func (h *harness) toolFound() {
	h.runner.On("LookPath", "pg_dump").Return("/usr/bin/pg_dump", nil).Once()
}

// dumpWrites makes the runner behave like a dump tool writing content to
// its --file argument and exiting with exitCode
func (h *harness) dumpWrites(content string, exitCode int) {
	h.runner.On("Run", mock.Anything, mock.Anything).Return(
		func(_ context.Context, cmd backup.Command) (backup.RunResult, error) {
			for i, arg := range cmd.Args {
				if arg == "--file" {
					if err := os.WriteFile(cmd.Args[i+1], []byte(content), 0644); err != nil {
						return backup.RunResult{}, err
					}
				}
			}
			res := backup.RunResult{ExitCode: exitCode}
			if exitCode != 0 {
				res.Stderr = "pg_dump: error: connection to server failed"
			}
			return res, nil
		}, nil).Once()
}

func seed(t *testing.T, dir string, ages map[string]float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, age := range ages {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("PGDMP"), 0644))
		mtime := now.Add(-time.Duration(age * float64(retention.Day)))
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExecuteDryRun(t *testing.T) {
	h := newHarness(t)
	h.toolFound()
	dir := filepath.Join(t.TempDir(), "b")

	code := h.execute("--dry-run", "-d", dir, "-r", "30", "-n", "mydb")

	assert.Equal(t, 0, code)
	assert.NoDirExists(t, dir)

	out := h.stdout.String()
	assert.Contains(t, out, "mydb")
	assert.Contains(t, out, "retention_days=30")
	assert.Contains(t, out, "[DRY RUN] would run: pg_dump")
	assert.Contains(t, out, backup.ArtifactName(now))
	assert.Contains(t, out, "[DRY RUN] Backup process completed")
	assert.NotContains(t, out, "secret")
	h.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestExecuteUsage(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		env      map[string]string
		wantCode int
		wantErr  string
		usage    bool
	}{
		{
			name:     "unknown_flag",
			args:     []string{"--bogus"},
			wantCode: 1,
			wantErr:  "unknown flag: --bogus",
			usage:    true,
		},
		{
			name:     "positional_argument",
			args:     []string{"-n", "mydb", "extra"},
			wantCode: 1,
			wantErr:  `unexpected argument "extra"`,
			usage:    true,
		},
		{
			name:     "non_numeric_retention",
			args:     []string{"-n", "mydb", "-r", "abc"},
			wantCode: 1,
			wantErr:  "invalid argument",
			usage:    true,
		},
		{
			name:     "negative_retention",
			args:     []string{"-n", "mydb", "-r", "-1"},
			wantCode: 1,
			wantErr:  "retention must be a non-negative",
			usage:    true,
		},
		{
			name:     "bad_timeout",
			args:     []string{"-n", "mydb", "--timeout", "soon"},
			wantCode: 1,
			wantErr:  `invalid --timeout "soon"`,
			usage:    true,
		},
		{
			name:     "missing_database_name",
			args:     []string{"-d", "/tmp/b"},
			wantCode: 1,
			wantErr:  "database name is required",
			usage:    true,
		},
		{
			name:     "unreadable_config_file",
			args:     []string{"-n", "mydb", "-c", "/nonexistent/backup.json"},
			wantCode: 1,
			wantErr:  "invalid configuration",
			usage:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for k, v := range tt.env {
				h.env[k] = v
			}

			code := h.execute(tt.args...)

			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, h.stderr.String(), "Error: ")
			assert.Contains(t, h.stderr.String(), tt.wantErr)
			if tt.usage {
				assert.Contains(t, h.stderr.String(), "Usage:")
			} else {
				assert.NotContains(t, h.stderr.String(), "Usage:")
			}
			h.runner.AssertNotCalled(t, "LookPath", mock.Anything)
		})
	}
}

func TestExecuteHelp(t *testing.T) {
	h := newHarness(t)

	code := h.execute("--help")

	assert.Equal(t, 0, code)
	assert.Contains(t, h.stdout.String(), "backup-tool")
	assert.Contains(t, h.stdout.String(), "--retention")
	assert.Empty(t, h.stderr.String())
}

func TestExecuteBackup(t *testing.T) {
	t.Run("creates_artifact_and_sweeps", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("PGDMP-content", 0)

		dir := t.TempDir()
		seed(t, dir, map[string]float64{
			"backup_20250320_000000.sql": 10,
			"backup_20250322_000000.sql": 8,
			"backup_20250327_000000.sql": 3,
		})

		code := h.execute("-d", dir, "-r", "7", "-n", "mydb")

		require.Equal(t, 0, code, h.stdout.String())
		assert.FileExists(t, filepath.Join(dir, backup.ArtifactName(now)))
		assert.NoFileExists(t, filepath.Join(dir, "backup_20250320_000000.sql"))
		assert.NoFileExists(t, filepath.Join(dir, "backup_20250322_000000.sql"))
		assert.FileExists(t, filepath.Join(dir, "backup_20250327_000000.sql"))

		out := h.stdout.String()
		assert.Contains(t, out, "Backup completed successfully")
		assert.Contains(t, out, "Removed 2 old backup(s)")
		assert.Contains(t, out, "Backup process completed successfully")
		assert.Contains(t, out, "Current backups in "+dir)
		assert.Empty(t, h.stderr.String())
	})

	t.Run("password_reaches_dump_tool_env_only", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("PGDMP", 0)

		code := h.execute("-d", t.TempDir(), "-n", "mydb")

		require.Equal(t, 0, code)
		h.runner.AssertCalled(t, "Run", mock.Anything, mock.MatchedBy(func(c backup.Command) bool {
			return len(c.Env) == 1 && c.Env[0] == "PGPASSWORD=secret"
		}))
		assert.NotContains(t, h.stdout.String(), "secret")
	})

	t.Run("dash_prefixed_name_is_passed_as_dbname", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("PGDMP", 0)

		code := h.execute("-d", t.TempDir(), "-n", "-x")

		require.Equal(t, 0, code, h.stdout.String())
		h.runner.AssertCalled(t, "Run", mock.Anything, mock.MatchedBy(func(c backup.Command) bool {
			n := len(c.Args)
			return n >= 2 && c.Args[n-2] == "--dbname" && c.Args[n-1] == "-x"
		}))
	})

	t.Run("dump_failure_skips_sweep", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("partial", 1)

		dir := t.TempDir()
		seed(t, dir, map[string]float64{"backup_20250101_000000.sql": 90})

		code := h.execute("-d", dir, "-r", "7", "-n", "mydb")

		assert.Equal(t, 1, code)
		assert.FileExists(t, filepath.Join(dir, "backup_20250101_000000.sql"))
		assert.NoFileExists(t, filepath.Join(dir, backup.ArtifactName(now)))
		assert.Contains(t, h.stdout.String(), "Backup failed")
		assert.NotContains(t, h.stdout.String(), "Cleaning up backups")
	})

	t.Run("missing_dump_tool", func(t *testing.T) {
		h := newHarness(t)
		h.runner.On("LookPath", "pg_dump").Return("", errors.New("executable file not found in $PATH")).Once()

		dir := filepath.Join(t.TempDir(), "b")
		code := h.execute("-d", dir, "-n", "mydb")

		assert.Equal(t, 1, code)
		assert.Contains(t, h.stdout.String(), "not installed or not in PATH")
		assert.NoDirExists(t, dir)
		assert.Empty(t, h.stderr.String(), "fatal errors are reported through the logger")
	})

	t.Run("retention_zero_keeps_everything", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("PGDMP", 0)

		dir := t.TempDir()
		seed(t, dir, map[string]float64{"backup_20200101_000000.sql": 1000})

		code := h.execute("-d", dir, "-r", "0", "-n", "mydb")

		assert.Equal(t, 0, code)
		assert.FileExists(t, filepath.Join(dir, "backup_20200101_000000.sql"))
		assert.Contains(t, h.stdout.String(), "Retention disabled")
	})

	t.Run("environment_supplies_defaults", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("PGDMP", 0)

		dir := t.TempDir()
		h.env[config.EnvDatabaseName] = "envdb"
		h.env[config.EnvBackupDir] = dir
		h.env[config.EnvRetention] = "14"

		code := h.execute()

		assert.Equal(t, 0, code)
		assert.FileExists(t, filepath.Join(dir, backup.ArtifactName(now)))
		assert.Contains(t, h.stdout.String(), "envdb")
		assert.Contains(t, h.stdout.String(), "retention_days=14")
	})
}

func TestExecuteDestinations(t *testing.T) {
	t.Run("local_destination_receives_copy", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("PGDMP-offsite", 0)

		dir := t.TempDir()
		nas := t.TempDir()
		seed(t, nas, map[string]float64{"backup_20250101_000000.sql": 90})

		cfgFile := writeConfig(t, `{
			"destinations": [
				{"name": "nas", "type": "local", "options": {"path": "`+nas+`"}}
			]
		}`)

		code := h.execute("-d", dir, "-n", "mydb", "-c", cfgFile)

		require.Equal(t, 0, code, h.stdout.String())
		copied, err := os.ReadFile(filepath.Join(nas, backup.ArtifactName(now)))
		require.NoError(t, err)
		assert.Equal(t, "PGDMP-offsite", string(copied))
		assert.NoFileExists(t, filepath.Join(nas, "backup_20250101_000000.sql"))
		assert.Contains(t, h.stdout.String(), "Uploaded "+backup.ArtifactName(now)+" to nas")
	})

	t.Run("broken_destination_is_a_warning", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("PGDMP", 0)

		dir := t.TempDir()
		cfgFile := writeConfig(t, `{
			"destinations": [
				{"name": "offsite", "type": "s3", "options": {}}
			]
		}`)

		code := h.execute("-d", dir, "-n", "mydb", "-c", cfgFile)

		assert.Equal(t, 0, code)
		assert.FileExists(t, filepath.Join(dir, backup.ArtifactName(now)))
		assert.Contains(t, h.stdout.String(), "destination offsite unavailable")
		assert.Contains(t, h.stdout.String(), "Backup process completed with warnings")
	})

	t.Run("disabled_destination_is_ignored", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()
		h.dumpWrites("PGDMP", 0)

		nas := filepath.Join(t.TempDir(), "nas")
		cfgFile := writeConfig(t, `{
			"destinations": [
				{"name": "nas", "type": "local", "enabled": false, "options": {"path": "`+nas+`"}}
			]
		}`)

		code := h.execute("-d", t.TempDir(), "-n", "mydb", "-c", cfgFile)

		assert.Equal(t, 0, code)
		assert.NoDirExists(t, nas)
	})

	t.Run("dry_run_contacts_no_destination", func(t *testing.T) {
		h := newHarness(t)
		h.toolFound()

		nas := filepath.Join(t.TempDir(), "nas")
		cfgFile := writeConfig(t, `{
			"destinations": [
				{"name": "nas", "type": "local", "options": {"path": "`+nas+`"}}
			]
		}`)

		code := h.execute("--dry-run", "-d", t.TempDir(), "-n", "mydb", "-c", cfgFile)

		assert.Equal(t, 0, code)
		assert.NoDirExists(t, nas)
		assert.Contains(t, h.stdout.String(), "[DRY RUN] would upload")
	})
}
