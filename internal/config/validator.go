package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validator checks individual settings and reports soft problems
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProvider validates a backend provider name
func (v *Validator) ValidateProvider(provider string) error {
	validProviders := []string{"ollama", "openai", "anthropic"}
	for _, valid := range validProviders {
		if provider == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid provider: %s (must be one of: %s)", provider, strings.Join(validProviders, ", "))
}

// ValidateAPIKey validates an API key format for the provider
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if provider == "ollama" {
		return nil
	}
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}
	return nil
}

// ValidateBaseURL validates an optional backend URL override
func (v *Validator) ValidateBaseURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL scheme: %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL: missing host")
	}
	return nil
}

// ValidateSchedule validates a five-field cron expression
func (v *Validator) ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid health schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePersonaDir checks that the persona directory exists
func (v *Validator) ValidatePersonaDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("persona directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("persona directory %s is not a directory", dir)
	}
	return nil
}

// ValidateConfig collects every problem found, including ones Validate tolerates
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateProvider(cfg.Backend.Provider); err == nil {
		if err := v.ValidateAPIKey(cfg.Backend.APIKey, cfg.Backend.Provider); err != nil {
			errs = append(errs, fmt.Errorf("backend: %w", err))
		}
	}
	if err := v.ValidateBaseURL(cfg.Backend.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	if err := v.ValidateSchedule(cfg.Health.Schedule); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if cfg.Personas.Dir != "" {
		if err := v.ValidatePersonaDir(cfg.Personas.Dir); err != nil {
			errs = append(errs, err)
		}
	}
	for id, model := range cfg.Personas.ModelMap {
		if strings.TrimSpace(model) == "" {
			errs = append(errs, fmt.Errorf("personas model_map[%s] is empty", id))
		}
	}

	return errs
}
