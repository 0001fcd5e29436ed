package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Wizard walks the user through the settings a first meeting needs
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and prompting on out
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run starts from base (or defaults) and returns the edited config
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := base
	if cfg == nil {
		cfg = DefaultConfig()
	}
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== Roundtable Configuration ===")
	fmt.Fprintln(w.out)

	for {
		provider, err := w.ask("Backend provider (ollama/openai/anthropic)", cfg.Backend.Provider)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateProvider(provider); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		if provider != cfg.Backend.Provider {
			cfg.Backend.BaseURL = ""
		}
		cfg.Backend.Provider = provider
		break
	}

	if cfg.Backend.Provider != "ollama" {
		for {
			key, err := w.ask("API key", "")
			if err != nil {
				return nil, err
			}
			if err := validator.ValidateAPIKey(key, cfg.Backend.Provider); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}
			cfg.Backend.APIKey = key
			break
		}
	}

	for {
		baseURL, err := w.ask("Base URL (blank for provider default)", cfg.Backend.BaseURL)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateBaseURL(baseURL); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Backend.BaseURL = baseURL
		break
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Personas:")

	dir, err := w.ask("Persona directory", cfg.Personas.Dir)
	if err != nil {
		return nil, err
	}
	cfg.Personas.Dir = dir

	model, err := w.ask("Default model", cfg.Personas.DefaultModel)
	if err != nil {
		return nil, err
	}
	cfg.Personas.DefaultModel = model

	final, err := w.ask("Final reviewer (persona id or name, blank for none)", cfg.Personas.FinalReviewer)
	if err != nil {
		return nil, err
	}
	cfg.Personas.FinalReviewer = final

	fmt.Fprintln(w.out)
	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
	} else {
		cfg.Logging.Level = level
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")
	return cfg, nil
}

// ask prompts with a default shown in brackets. A blank answer keeps it.
func (w *Wizard) ask(prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}

	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}
