package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRendersServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: " foundryd ", Env: "test", Output: &buf})
	logger.Info("applied", slog.String("tx", "0x01"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "foundryd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "applied", line["message"])
	require.Equal(t, "0x01", line["tx"])
	require.Contains(t, line, "timestamp")
}

func TestNewHonoursLevelAndFileSink(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "foundry.log")
	logger := New(Options{Service: "foundryd", Level: "warn", Output: &buf, File: &FileSink{Path: path, MaxSizeMB: 1}})
	logger.Info("dropped")
	logger.Warn("kept")

	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(written), "kept")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestValidLevel(t *testing.T) {
	require.True(t, ValidLevel(" Info "))
	require.True(t, ValidLevel("warn"))
	require.False(t, ValidLevel("verbose"))
	require.False(t, ValidLevel(""))
}
