package generation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request contains the parameters of a single generation call
type Request struct {
	Prompt  string
	Model   string
	Timeout time.Duration
}

// Generator performs one generation call against a backend
type Generator interface {
	// Generate returns the trimmed response text or a typed *Error
	Generate(ctx context.Context, req Request) (string, error)

	// Provider returns the provider name
	Provider() string
}

// ModelLister is implemented by backends that can enumerate installed models
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ModelPuller is implemented by backends that can fetch a model on demand
type ModelPuller interface {
	PullModel(ctx context.Context, model string) error
}

// BackendConfig selects and configures a backend
type BackendConfig struct {
	Provider       string  // ollama, openai, anthropic
	BaseURL        string  // optional override
	APIKey         string  // required for openai and anthropic
	MaxTokens      int     // upper bound on generated tokens, 0 = backend default
	RequestsPerSec float64 // 0 disables rate limiting
	Burst          int
}

// NewGenerator creates a backend from its configuration
func NewGenerator(cfg BackendConfig) (Generator, error) {
	var gen Generator
	switch cfg.Provider {
	case "", "ollama":
		p, err := NewOllamaProvider(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		gen = p
	case "openai":
		gen = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.MaxTokens)
	case "anthropic":
		gen = NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}

	if cfg.RequestsPerSec > 0 {
		gen = NewRateLimited(gen, cfg.RequestsPerSec, cfg.Burst)
	}
	return gen, nil
}

// invoke runs fn under the request timeout and normalizes its outcome.
func invoke(ctx context.Context, provider string, req Request, fn func(ctx context.Context) (string, error)) (string, error) {
	if req.Model == "" {
		return "", &Error{Provider: provider, Kind: ErrBackend, Err: fmt.Errorf("model is required")}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	text, err := fn(ctx)
	if err != nil {
		return "", classify(ctx, provider, req.Model, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Error{Provider: provider, Model: req.Model, Kind: ErrEmptyResponse}
	}
	return text, nil
}
