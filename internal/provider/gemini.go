package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiProvider generates text via Gemini and is the orchestrator's
// image-generation backend: the only provider wired with an image
// model.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	imageModel string
}

// GeminiConfig configures the Gemini-backed provider.
type GeminiConfig struct {
	APIKey     string
	Model      string
	ImageModel string
}

// NewGeminiProvider builds a Gemini-backed LLMProvider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: no API key configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = "gemini-2.0-flash"
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = "imagen-3.0-generate-002"
	}

	return &GeminiProvider{client: client, model: modelID, imageModel: imageModel}, nil
}

func (p *GeminiProvider) ID() string { return "gemini" }

func (p *GeminiProvider) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	var resp *genai.GenerateContentResponse
	err := withRetryErr(ctx, func() error {
		var callErr error
		resp, callErr = p.client.Models.GenerateContent(ctx, p.model, contents, config)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return resp.Text(), nil
}

func (p *GeminiProvider) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	text, err := p.GenerateText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	return stripJSONFence(text), nil
}

func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string) (ImageResult, error) {
	imgConfig := &genai.GenerateImagesConfig{NumberOfImages: 1}
	var resp *genai.GenerateImagesResponse
	err := withRetryErr(ctx, func() error {
		var callErr error
		resp, callErr = p.client.Models.GenerateImages(ctx, p.imageModel, prompt, imgConfig)
		return callErr
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("gemini: generate images: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return ImageResult{}, fmt.Errorf("gemini: no image returned")
	}

	img := resp.GeneratedImages[0].Image
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return ImageResult{Data: img.ImageBytes, MimeType: mime}, nil
}
