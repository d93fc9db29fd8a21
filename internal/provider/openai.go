package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// OpenAIProvider generates text and JSON via the OpenAI chat
// completions API. It does not offer image generation here; that is
// delegated to the Gemini provider.
type OpenAIProvider struct {
	chatModel model.ToolCallingChatModel
	config    OpenAIConfig
}

// OpenAIConfig configures the OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewOpenAIProvider builds an OpenAI-backed LLMProvider.
func NewOpenAIProvider(ctx context.Context, cfg OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: no API key configured")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = "gpt-4o"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	ccfg := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		ccfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, ccfg)
	if err != nil {
		return nil, fmt.Errorf("openai: create chat model: %w", err)
	}

	return &OpenAIProvider{chatModel: chatModel, config: cfg}, nil
}

func (p *OpenAIProvider) ID() string { return "openai" }

func (p *OpenAIProvider) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return generateWithChatModel(ctx, p.chatModel, systemPrompt, userPrompt)
}

func (p *OpenAIProvider) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	text, err := p.GenerateText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	return stripJSONFence(text), nil
}

func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) (ImageResult, error) {
	return ImageResult{}, ErrImageGenerationUnsupported
}
