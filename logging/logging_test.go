package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story_studio/config"
)

func TestFileCoreWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "studio.log")
	cfg := config.DefaultConfig().Logging
	cfg.File = path

	logger, err := New(cfg, false)
	require.NoError(t, err)
	logger.Debug("hidden at info")
	logger.Info("outline created", zap.String("mode", "Dreamscape"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "outline created", entry["message"])
	assert.Equal(t, "Dreamscape", entry["mode"])
	assert.Contains(t, entry, "timestamp")
}

func TestNoCoresIsNop(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "debug"}, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"}, true)
	assert.Error(t, err)
}
