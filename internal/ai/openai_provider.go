package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/amishk599/jobsift/internal/model"
)

// Defaults target OpenRouter's OpenAI-compatible endpoint.
const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "openai/gpt-oss-20b:free"
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.7
)

// OpenAIProvider calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// ProviderConfig configures an OpenAIProvider. Zero values fall back to the
// package defaults.
type ProviderConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	HTTPClient  *http.Client
}

// NewOpenAIProvider creates a provider for the given endpoint and key.
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	p := &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if p.model == "" {
		p.model = DefaultModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = DefaultMaxTokens
	}
	if p.temperature <= 0 {
		p.temperature = DefaultTemperature
	}
	return p
}

// Complete sends the prompts and returns the first choice's content.
func (p *OpenAIProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("llm returned empty content")
	}
	return content, nil
}

// parseAPIError maps go-openai errors onto model.HTTPError so the retry
// policy can classify them.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &model.HTTPError{
			StatusCode: reqErr.HTTPStatusCode,
			Err:        fmt.Errorf("llm request: %w", err),
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &model.HTTPError{
			StatusCode: apiErr.HTTPStatusCode,
			Err:        fmt.Errorf("llm api: %s", apiErr.Message),
		}
	}

	return fmt.Errorf("llm request: %w", err)
}
