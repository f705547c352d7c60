package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/williamokano/backup-tool/pkg/config"
)

func writePgpass(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".pgpass")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
	return path
}

func TestGetPgpassPath(t *testing.T) {
	t.Run("pgpassfile_set", func(t *testing.T) {
		path, explicit, err := GetPgpassPath(config.MapEnv(map[string]string{
			EnvPgpassFile: "/config/.pgpass",
		}))
		require.NoError(t, err)
		assert.True(t, explicit)
		assert.Equal(t, "/config/.pgpass", path)
	})

	t.Run("home_directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		require.NoError(t, os.WriteFile(filepath.Join(home, ".pgpass"), nil, 0600))

		path, explicit, err := GetPgpassPath(config.MapEnv(nil))
		require.NoError(t, err)
		assert.False(t, explicit)
		assert.Equal(t, filepath.Join(home, ".pgpass"), path)
	})

	t.Run("nothing_found", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		_, _, err := GetPgpassPath(config.MapEnv(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no .pgpass file found")
	})
}

func TestValidatePgpassPermissions(t *testing.T) {
	t.Run("correct_permissions_0600", func(t *testing.T) {
		path := writePgpass(t, "", 0600)
		assert.NoError(t, ValidatePgpassPermissions(path))
	})

	t.Run("world_readable_0644", func(t *testing.T) {
		path := writePgpass(t, "", 0644)
		err := ValidatePgpassPermissions(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incorrect permissions 644")
	})

	t.Run("missing_file", func(t *testing.T) {
		err := ValidatePgpassPermissions("/nonexistent/.pgpass")
		assert.Error(t, err)
	})
}

func TestVerifyPgpassEntry(t *testing.T) {
	content := `# comment
db.internal:5432:app:backup:secret
*:*:reports:*:other:with:colons
malformed:line
`
	path := writePgpass(t, content, 0600)

	tests := []struct {
		name                       string
		host, port, database, user string
		want                       bool
	}{
		{"exact_match", "db.internal", "5432", "app", "backup", true},
		{"wildcards", "anywhere", "6000", "reports", "someone", true},
		{"wrong_port", "db.internal", "5433", "app", "backup", false},
		{"unknown_database", "db.internal", "5432", "billing", "backup", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := VerifyPgpassEntry(path, tt.host, tt.port, tt.database, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, found)
		})
	}
}
