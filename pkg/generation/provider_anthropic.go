package generation

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicProvider implements Generator for Anthropic Claude
type AnthropicProvider struct {
	client    anthropic.Client
	maxTokens int
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, baseURL string, maxTokens int) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		maxTokens: maxTokens,
	}
}

// Provider returns the provider name
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

// Generate sends the prompt as a single user turn and joins the text blocks
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	return invoke(ctx, p.Provider(), req, func(ctx context.Context) (string, error) {
		response, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(req.Model),
			MaxTokens: int64(p.maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
			},
		})
		if err != nil {
			return "", err
		}

		content := ""
		for _, block := range response.Content {
			if b, ok := block.AsAny().(anthropic.TextBlock); ok {
				content += b.Text
			}
		}
		return content, nil
	})
}

// ListModels returns the first page of model IDs
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}
