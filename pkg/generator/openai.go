package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIGenerator calls the chat completions API
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIGenerator creates a chat-completion backed generator. baseURL may be empty.
func NewOpenAIGenerator(apiKey, baseURL, model string, temperature float32, logger *zap.Logger) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}, nil
}

// Generate sends prompt as a single user message and returns the reply text
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("API returned no choices")
	}

	g.logger.Debug("chat completion finished",
		zap.String("model", g.model),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
