package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "assistant.log")
	logger := New(Options{File: path})

	logger.Info("catalog synced", zap.Int("tables", 3))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"catalog synced"`)
	assert.Contains(t, string(data), `"tables":3`)
}

func TestVerboseEnablesDebug(t *testing.T) {
	assert.True(t, New(Options{Verbose: true}).Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New(Options{}).Core().Enabled(zapcore.DebugLevel))
}
