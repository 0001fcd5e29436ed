package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardRun(t *testing.T) {
	t.Run("hosted provider re-prompts on bad input", func(t *testing.T) {
		input := strings.Join([]string{
			"gemini",            // invalid provider
			"anthropic",         // provider
			"sk-wrong",          // invalid key
			"sk-ant-abc",        // key
			"",                  // base url keeps default
			"/srv/personas",     // persona dir
			"claude-3-5-haiku",  // default model
			"",                  // final reviewer keeps default
			"debug",             // log level
		}, "\n") + "\n"
		out := &bytes.Buffer{}

		cfg, err := NewWizard(strings.NewReader(input), out).Run(nil)
		require.NoError(t, err)

		assert.Equal(t, "anthropic", cfg.Backend.Provider)
		assert.Equal(t, "sk-ant-abc", cfg.Backend.APIKey)
		assert.Empty(t, cfg.Backend.BaseURL, "switching provider drops the old base url")
		assert.Equal(t, "/srv/personas", cfg.Personas.Dir)
		assert.Equal(t, "claude-3-5-haiku", cfg.Personas.DefaultModel)
		assert.Equal(t, "violet-noire", cfg.Personas.FinalReviewer)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Contains(t, out.String(), "invalid provider")
		assert.Contains(t, out.String(), "sk-ant-")
	})

	t.Run("ollama skips the key", func(t *testing.T) {
		input := "\n\n\n\n\nloud"
		cfg, err := NewWizard(strings.NewReader(input), &bytes.Buffer{}).Run(nil)
		require.NoError(t, err)
		assert.Equal(t, "ollama", cfg.Backend.Provider)
		assert.Empty(t, cfg.Backend.APIKey)
		assert.Equal(t, "http://localhost:11434", cfg.Backend.BaseURL)
		assert.Equal(t, "info", cfg.Logging.Level, "invalid level keeps the current one")
	})

	t.Run("input ends early", func(t *testing.T) {
		_, err := NewWizard(strings.NewReader(""), &bytes.Buffer{}).Run(nil)
		assert.Error(t, err)
	})
}
