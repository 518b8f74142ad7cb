package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "assessor.log")
	cfg := DefaultConfig()
	cfg.File = path
	cfg.Level = "debug"

	log, err := New(cfg)
	require.NoError(t, err)
	log.Debug("autosave", zap.String("attempt", "a1"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "autosave", gjson.GetBytes(data, "message").String())
	assert.Equal(t, "a1", gjson.GetBytes(data, "attempt").String())
	assert.Equal(t, "DEBUG", gjson.GetBytes(data, "level").String())
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assessor.log")
	log, err := New(Config{File: path, Level: "warn"})
	require.NoError(t, err)
	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewWithoutOutputsIsNop(t *testing.T) {
	log, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, log)
	log.Info("nowhere")
}

func TestDefaultLogPathUsesXDG(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, "/tmp/state/assessor/assessor.log", DefaultLogPath())
}
