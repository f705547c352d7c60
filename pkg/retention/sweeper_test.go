package retention_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/williamokano/backup-tool/pkg/retention"
	"github.com/williamokano/backup-tool/pkg/storage"
	"github.com/williamokano/backup-tool/pkg/storage/local"
	"github.com/williamokano/backup-tool/pkg/storage/mocks"
)

var now = time.Date(2025, 3, 30, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func daysAgo(d float64) time.Time {
	return now.Add(-time.Duration(d * float64(retention.Day)))
}

// seed writes files into dir with the given ages in days
func seed(t *testing.T, dir string, ages map[string]float64) {
	t.Helper()
	for name, age := range ages {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("PGDMP"), 0644))
		mtime := daysAgo(age)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func TestExpired(t *testing.T) {
	tests := []struct {
		name string
		age  float64
		days int
		want bool
	}{
		{"newer_than_window", 3, 7, false},
		{"exactly_at_boundary", 7, 7, false},
		{"within_boundary_day", 7.9, 7, false},
		{"one_day_past", 8, 7, true},
		{"well_past", 10, 7, true},
		{"retention_zero", 400, 0, false},
		{"future_mtime", -2, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retention.Expired(daysAgo(tt.age), now, tt.days))
		})
	}
}

func TestSweepLocal(t *testing.T) {
	ctx := context.Background()

	t.Run("removes_only_expired_artifacts", func(t *testing.T) {
		dir := t.TempDir()
		seed(t, dir, map[string]float64{
			"backup_20250320_000000.sql": 10,
			"backup_20250322_000000.sql": 8,
			"backup_20250327_000000.sql": 3,
			"notes.txt":                  30,
		})

		var buf bytes.Buffer
		sweeper := retention.NewSweeper(zerolog.New(&buf)).WithClock(clock)
		res, err := sweeper.Sweep(ctx, local.Open("local", dir), retention.Policy{RetentionDays: 7})

		require.NoError(t, err)
		assert.Equal(t, []string{"backup_20250320_000000.sql", "backup_20250322_000000.sql"}, res.Removed)
		assert.Len(t, res.Removed, 2)
		assert.Empty(t, res.Failed)
		assert.NoFileExists(t, filepath.Join(dir, "backup_20250320_000000.sql"))
		assert.NoFileExists(t, filepath.Join(dir, "backup_20250322_000000.sql"))
		assert.FileExists(t, filepath.Join(dir, "backup_20250327_000000.sql"))
		assert.FileExists(t, filepath.Join(dir, "notes.txt"))
		assert.Contains(t, buf.String(), "Removed 2 old backup(s)")
	})

	t.Run("boundary_artifact_is_kept", func(t *testing.T) {
		dir := t.TempDir()
		seed(t, dir, map[string]float64{
			"backup_a.sql": 7,
			"backup_b.sql": 8,
		})

		sweeper := retention.NewSweeper(zerolog.Nop()).WithClock(clock)
		res, err := sweeper.Sweep(ctx, local.Open("local", dir), retention.Policy{RetentionDays: 7})

		require.NoError(t, err)
		assert.Equal(t, []string{"backup_b.sql"}, res.Removed)
		assert.FileExists(t, filepath.Join(dir, "backup_a.sql"))
	})

	t.Run("retention_zero_removes_nothing", func(t *testing.T) {
		dir := t.TempDir()
		seed(t, dir, map[string]float64{"backup_old.sql": 1000})

		sweeper := retention.NewSweeper(zerolog.Nop()).WithClock(clock)
		res, err := sweeper.Sweep(ctx, local.Open("local", dir), retention.Policy{RetentionDays: 0})

		require.NoError(t, err)
		assert.True(t, res.Disabled)
		assert.Empty(t, res.Removed)
		assert.FileExists(t, filepath.Join(dir, "backup_old.sql"))
	})

	t.Run("dry_run_deletes_nothing", func(t *testing.T) {
		dir := t.TempDir()
		seed(t, dir, map[string]float64{
			"backup_20250320_000000.sql": 10,
			"backup_20250327_000000.sql": 3,
		})

		var buf bytes.Buffer
		sweeper := retention.NewSweeper(zerolog.New(&buf)).WithClock(clock)
		res, err := sweeper.Sweep(ctx, local.Open("local", dir), retention.Policy{RetentionDays: 7, DryRun: true})

		require.NoError(t, err)
		require.Len(t, res.Candidates, 1)
		assert.Equal(t, "backup_20250320_000000.sql", res.Candidates[0].Path)
		assert.Empty(t, res.Removed)
		assert.FileExists(t, filepath.Join(dir, "backup_20250320_000000.sql"))
		assert.Contains(t, buf.String(), "[DRY RUN] Would remove: backup_20250320_000000.sql")
	})

	t.Run("nothing_to_remove", func(t *testing.T) {
		dir := t.TempDir()
		seed(t, dir, map[string]float64{"backup_new.sql": 1})

		var buf bytes.Buffer
		sweeper := retention.NewSweeper(zerolog.New(&buf)).WithClock(clock)
		res, err := sweeper.Sweep(ctx, local.Open("local", dir), retention.Policy{RetentionDays: 7})

		require.NoError(t, err)
		assert.Empty(t, res.Removed)
		assert.Contains(t, buf.String(), "No old backups to remove")
	})

	t.Run("missing_directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "never-created")

		var buf bytes.Buffer
		sweeper := retention.NewSweeper(zerolog.New(&buf)).WithClock(clock)
		res, err := sweeper.Sweep(ctx, local.Open("local", dir), retention.Policy{RetentionDays: 7})

		require.NoError(t, err)
		assert.True(t, res.Missing)
		assert.Empty(t, res.Removed)
		assert.Contains(t, buf.String(), "Backup directory does not exist")
		assert.NoDirExists(t, dir)
	})
}

func TestSweepDeleteFailureContinues(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	backend.On("Name").Return("offsite")
	backend.On("List", mock.Anything, "backup_*.sql").Return([]storage.FileInfo{
		{Path: "backup_1.sql", Size: 10, ModTime: daysAgo(20)},
		{Path: "backup_2.sql", Size: 10, ModTime: daysAgo(15)},
		{Path: "backup_3.sql", Size: 10, ModTime: daysAgo(1)},
	}, nil).Once()
	backend.On("Delete", mock.Anything, "backup_1.sql").Return(storage.ErrPermissionDenied).Once()
	backend.On("Delete", mock.Anything, "backup_2.sql").Return(nil).Once()

	sweeper := retention.NewSweeper(zerolog.Nop()).WithClock(clock)
	res, err := sweeper.Sweep(context.Background(), backend, retention.Policy{RetentionDays: 7})

	require.NoError(t, err)
	assert.Equal(t, "offsite", res.Backend)
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, []string{"backup_2.sql"}, res.Removed)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "backup_1.sql", res.Failed[0].Path)
	assert.ErrorIs(t, res.Failed[0].Err, storage.ErrPermissionDenied)
}

func TestSweepListFailure(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	backend.On("Name").Return("offsite")
	backend.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("bucket unreachable")).Once()

	sweeper := retention.NewSweeper(zerolog.Nop()).WithClock(clock)
	_, err := sweeper.Sweep(context.Background(), backend, retention.Policy{RetentionDays: 7})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")
}
