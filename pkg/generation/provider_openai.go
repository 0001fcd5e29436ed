package generation

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Generator for OpenAI chat completions
type OpenAIProvider struct {
	client    openai.Client
	maxTokens int
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, baseURL string, maxTokens int) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client:    openai.NewClient(opts...),
		maxTokens: maxTokens,
	}
}

// Provider returns the provider name
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

// Generate sends the prompt as a single user message
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	return invoke(ctx, p.Provider(), req, func(ctx context.Context) (string, error) {
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(req.Model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(req.Prompt),
			},
		}
		if p.maxTokens > 0 {
			params.MaxTokens = openai.Int(int64(p.maxTokens))
		}

		response, err := p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", err
		}
		if len(response.Choices) == 0 {
			return "", fmt.Errorf("no response choices returned")
		}
		return response.Choices[0].Message.Content, nil
	})
}

// ListModels returns the model IDs visible to the API key
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}
