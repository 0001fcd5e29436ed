package generation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaProvider implements Generator against a local Ollama server
type OllamaProvider struct {
	client *api.Client
}

// NewOllamaProvider creates a client for baseURL. An empty baseURL honors
// OLLAMA_HOST and otherwise targets the default local server.
func NewOllamaProvider(baseURL string) (*OllamaProvider, error) {
	if baseURL == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return &OllamaProvider{client: client}, nil
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSHandshakeTimeout: 10 * time.Second,
			IdleConnTimeout:     30 * time.Second,
		},
	}
	return &OllamaProvider{client: api.NewClient(base, httpClient)}, nil
}

// Provider returns the provider name
func (p *OllamaProvider) Provider() string {
	return "ollama"
}

// Generate streams the completion and concatenates the chunks
func (p *OllamaProvider) Generate(ctx context.Context, req Request) (string, error) {
	return invoke(ctx, p.Provider(), req, func(ctx context.Context) (string, error) {
		var out strings.Builder
		err := p.client.Generate(ctx, &api.GenerateRequest{
			Model:  req.Model,
			Prompt: req.Prompt,
		}, func(chunk api.GenerateResponse) error {
			out.WriteString(chunk.Response)
			return nil
		})
		if err != nil {
			return "", err
		}
		return out.String(), nil
	})
}

// ListModels returns the names of the installed models
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		names = append(names, name)
	}
	return names, nil
}

// PullModel fetches a model and blocks until Ollama reports completion
func (p *OllamaProvider) PullModel(ctx context.Context, model string) error {
	var status string
	err := p.client.Pull(ctx, &api.PullRequest{Model: model}, func(progress api.ProgressResponse) error {
		status = progress.Status
		return nil
	})
	if err != nil {
		return fmt.Errorf("pull %s: %w", model, err)
	}
	if status != "success" {
		return fmt.Errorf("pull %s: ended with status %q", model, status)
	}
	return nil
}
