package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn, err := New(Options{Out: &buf})
	require.NoError(t, err)
	defer closeFn()

	log.Info().Str("database", "app").Msg("starting backup")
	log.Warn().Msg("careful")
	log.Error().Msg("broken")
	log.Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, "[INFO] starting backup")
	assert.Contains(t, out, "database=app")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[ERROR] broken")
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "\x1b[", "no colors when output is not a terminal")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(Options{Out: &buf, Format: "json", Level: "debug"})
	require.NoError(t, err)

	log.Debug().Str("path", "/tmp/b").Msg("listing")

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "debug", event["level"])
	assert.Equal(t, "listing", event["message"])
	assert.Equal(t, "/tmp/b", event["path"])
	assert.Contains(t, event, "time")
}

func TestNewWithFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "backup.log")

	log, closeFn, err := New(Options{Out: &buf, File: path})
	require.NoError(t, err)

	log.Info().Msg("written twice")
	require.NoError(t, closeFn())

	assert.Contains(t, buf.String(), "[INFO] written twice")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(line, "{"), "file sink receives JSON")
	assert.Contains(t, line, `"message":"written twice"`)
}

func TestNewUnknownFormat(t *testing.T) {
	_, _, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestLevelFormatterColors(t *testing.T) {
	colored := levelFormatter(false)(zerolog.LevelWarnValue)
	assert.Contains(t, colored, "[WARN]")
	assert.Contains(t, colored, "\x1b[")

	plain := levelFormatter(true)(zerolog.LevelWarnValue)
	assert.Equal(t, "[WARN]", plain)
}
