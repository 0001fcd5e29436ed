package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("console only", func(t *testing.T) {
		logger, err := New(Config{Level: "info", Console: true})
		require.NoError(t, err)
		assert.NoError(t, logger.Close())
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "roundtable.log")

		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		zl := logger.Zerolog()
		zl.Info().Msg("meeting started")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "meeting started")
	})

	t.Run("redaction applies to file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "roundtable.log")

		logger, err := New(Config{Level: "info", File: logFile, Redaction: true})
		require.NoError(t, err)
		assert.NotNil(t, logger.redactor)

		zl := logger.Zerolog()
		zl.Info().Str("key", "sk-ant-REDACTED").Msg("configured backend")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "[REDACTED]")
		assert.NotContains(t, string(content), "abcdefghijklmnopqrstuvwxyz")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "loud"})
		require.NoError(t, err)
		defer logger.Close()
		assert.Equal(t, zerolog.InfoLevel, logger.Zerolog().GetLevel())
	})
}

func TestComponent(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	defer logger.Close()

	child := logger.Component("retry")
	assert.Equal(t, zerolog.WarnLevel, child.GetLevel())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 50, cfg.MaxSize)
	assert.Equal(t, 14, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}
