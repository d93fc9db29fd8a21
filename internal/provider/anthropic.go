package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// AnthropicProvider generates text and JSON via Claude. It does not
// offer image generation.
type AnthropicProvider struct {
	chatModel model.ToolCallingChatModel
	config    AnthropicConfig
}

// AnthropicConfig configures the Claude-backed provider.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewAnthropicProvider builds a Claude-backed LLMProvider.
func NewAnthropicProvider(ctx context.Context, cfg AnthropicConfig) (*AnthropicProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: no API key configured")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	ccfg := &claude.Config{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: maxTokens,
	}
	if cfg.BaseURL != "" {
		ccfg.BaseURL = &cfg.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, ccfg)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create chat model: %w", err)
	}

	return &AnthropicProvider{chatModel: chatModel, config: cfg}, nil
}

func (p *AnthropicProvider) ID() string { return "anthropic" }

func (p *AnthropicProvider) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return generateWithChatModel(ctx, p.chatModel, systemPrompt, userPrompt)
}

func (p *AnthropicProvider) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	text, err := p.GenerateText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	return stripJSONFence(text), nil
}

func (p *AnthropicProvider) GenerateImage(ctx context.Context, prompt string) (ImageResult, error) {
	return ImageResult{}, ErrImageGenerationUnsupported
}

// generateWithChatModel issues a single non-streaming completion and
// returns its text content.
func generateWithChatModel(ctx context.Context, m model.ToolCallingChatModel, systemPrompt, userPrompt string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}
	var reply *schema.Message
	err := withRetryErr(ctx, func() error {
		var callErr error
		reply, callErr = m.Generate(ctx, messages)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return reply.Content, nil
}

// stripJSONFence removes a ```json ... ``` or ``` ... ``` wrapper that
// chat models habitually add around structured output.
func stripJSONFence(text string) []byte {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return []byte(trimmed)
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return []byte(trimmed)
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return []byte(strings.TrimSpace(strings.Join(lines, "\n")))
}
