package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithOptionsWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maild.log")
	logger := SetupWithOptions("maild", "test", Options{Level: slog.LevelWarn, File: path, MaxSizeMB: 1})
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	logger.Info("dropped")
	logger.Warn("kept", "authorization", "Bearer abc", "tx_hash", "0x01", slog.Group("args", "Subject", "hello", "mailId", "m-1"), "body", "")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "kept", entry["message"])
	require.Equal(t, "WARN", entry["severity"])
	require.Equal(t, "maild", entry["service"])
	require.Equal(t, RedactedValue, entry["authorization"])
	require.Equal(t, "0x01", entry["tx_hash"])
	require.Equal(t, "", entry["body"])
	args, ok := entry["args"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, RedactedValue, args["Subject"])
	require.Equal(t, "m-1", args["mailId"])
}

func TestMaskValue(t *testing.T) {
	require.Equal(t, " ", MaskValue(" "))
	require.Equal(t, RedactedValue, MaskValue("secret"))
	require.True(t, IsSensitive(" Passphrase"))
	require.False(t, IsSensitive("program"))
}
