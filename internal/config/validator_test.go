package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProvider(t *testing.T) {
	v := NewValidator()
	for _, p := range []string{"ollama", "openai", "anthropic"} {
		assert.NoError(t, v.ValidateProvider(p))
	}
	assert.Error(t, v.ValidateProvider("gemini"))
	assert.Error(t, v.ValidateProvider(""))
}

func TestValidateAPIKey(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		provider string
		key      string
		wantErr  bool
	}{
		{"ollama", "", false},
		{"openai", "sk-abc", false},
		{"openai", "abc", true},
		{"openai", "", true},
		{"anthropic", "sk-ant-abc", false},
		{"anthropic", "sk-abc", true},
	}
	for _, tt := range tests {
		err := v.ValidateAPIKey(tt.key, tt.provider)
		if tt.wantErr {
			assert.Error(t, err, "%s %q", tt.provider, tt.key)
		} else {
			assert.NoError(t, err, "%s %q", tt.provider, tt.key)
		}
	}
}

func TestValidateBaseURL(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateBaseURL(""))
	assert.NoError(t, v.ValidateBaseURL("http://localhost:11434"))
	assert.NoError(t, v.ValidateBaseURL("https://api.example.com/v1"))
	assert.Error(t, v.ValidateBaseURL("ftp://host"))
	assert.Error(t, v.ValidateBaseURL("http://"))
}

func TestValidateSchedule(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateSchedule(""))
	assert.NoError(t, v.ValidateSchedule("*/5 * * * *"))
	assert.NoError(t, v.ValidateSchedule("@every 1m"))
	assert.Error(t, v.ValidateSchedule("every five minutes"))
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateLogLevel("debug"))
	assert.Error(t, v.ValidateLogLevel("verbose"))
}

func TestValidatePersonaDir(t *testing.T) {
	v := NewValidator()
	dir := t.TempDir()
	assert.NoError(t, v.ValidatePersonaDir(dir))
	assert.Error(t, v.ValidatePersonaDir(dir+"/missing"))
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	cfg := DefaultConfig()
	cfg.Personas.Dir = t.TempDir()
	assert.Empty(t, v.ValidateConfig(cfg))

	cfg.Backend.Provider = "openai"
	cfg.Backend.APIKey = "bad"
	cfg.Health.Schedule = "nope"
	cfg.Logging.Level = "loud"
	cfg.Personas.ModelMap = map[string]string{"alpha": " "}
	errs := v.ValidateConfig(cfg)
	assert.Len(t, errs, 4)
}
