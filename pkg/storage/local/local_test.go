package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/williamokano/backup-tool/pkg/storage"
)

func TestNew(t *testing.T) {
	t.Run("creates_directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nas", "backups")

		b, err := New(storage.Config{Name: "nas", Type: "local", Options: map[string]interface{}{"path": dir}})
		require.NoError(t, err)
		assert.Equal(t, "nas", b.Name())
		assert.Equal(t, "local", b.Type())
		assert.DirExists(t, dir)
	})

	t.Run("path_required", func(t *testing.T) {
		_, err := New(storage.Config{Name: "nas", Options: map[string]interface{}{}})
		assert.ErrorIs(t, err, storage.ErrInvalidConfig)
	})

	t.Run("registered_with_factory", func(t *testing.T) {
		dir := t.TempDir()
		b, err := storage.NewFactory().Create(context.Background(), storage.Config{
			Name: "nas", Type: "local", Enabled: true, Options: map[string]interface{}{"path": dir},
		})
		require.NoError(t, err)
		assert.Equal(t, "local", b.Type())
	})
}

func TestOpenDoesNotCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	b := Open("local", dir)

	assert.Equal(t, dir, b.Dir())
	assert.NoDirExists(t, dir)

	_, err := b.List(context.Background(), "*")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"backup_20250103_000000.sql",
		"backup_20250101_000000.sql",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup_20250102_000000.sql"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "backup_20250104_000000.sql"), 0755))

	b := Open("local", dir)
	files, err := b.List(context.Background(), "backup_*.sql")
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Path)
	}
	assert.Equal(t, []string{
		"backup_20250101_000000.sql",
		"backup_20250102_000000.sql",
		"backup_20250103_000000.sql",
	}, names, "regular files only, in name order, empty files included")
	assert.Equal(t, int64(0), files[1].Size)
}

func TestWriteStatDelete(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "backup_20250101_000000.sql")
	require.NoError(t, os.WriteFile(src, []byte("PGDMP"), 0644))

	b := Open("nas", t.TempDir())

	require.NoError(t, b.Write(ctx, src, "backup_20250101_000000.sql"))
	assert.NoFileExists(t, filepath.Join(b.Dir(), "backup_20250101_000000.sql.part"))

	info, err := b.Stat(ctx, "backup_20250101_000000.sql")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)

	exists, err := b.Exists(ctx, "backup_20250101_000000.sql")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, b.Delete(ctx, "backup_20250101_000000.sql"))

	exists, err = b.Exists(ctx, "backup_20250101_000000.sql")
	require.NoError(t, err)
	assert.False(t, exists)

	err = b.Delete(ctx, "backup_20250101_000000.sql")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = b.Stat(ctx, "backup_20250101_000000.sql")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWriteMissingSource(t *testing.T) {
	b := Open("nas", t.TempDir())
	err := b.Write(context.Background(), "/nonexistent/file.sql", "file.sql")
	assert.Error(t, err)
}
