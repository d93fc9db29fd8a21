// Package provider wraps concrete LLM SDKs behind one narrow interface
// so the pipeline never depends on a specific vendor. Text generation
// is one non-streaming call per request: through Eino chat models for
// Anthropic and OpenAI, and through genai for Gemini. Image generation
// is delegated to whichever provider actually offers it.
package provider

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrImageGenerationUnsupported is returned by GenerateImage on
// providers that only offer text generation.
var ErrImageGenerationUnsupported = errors.New("provider does not support image generation")

// ImageResult is the output of a successful GenerateImage call.
type ImageResult struct {
	Data     []byte
	MimeType string
}

// LLMProvider is the orchestrator's entire boundary with the outside
// LLM ecosystem: everything upstream of it (Understand, PM-Analyze,
// Plan, Execute, the Executor) talks only to this interface.
type LLMProvider interface {
	// ID is the provider's configuration key (e.g. "anthropic").
	ID() string

	// GenerateJSON sends a system/user prompt pair and returns the
	// model's reply, which callers parse as JSON. The provider is
	// responsible for stripping any code-fence wrapping the model adds.
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error)

	// GenerateText sends a system/user prompt pair and returns the raw
	// reply text, for phases that produce user-facing prose rather than
	// structured data.
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// GenerateImage produces image bytes for prompt. Returns
	// ErrImageGenerationUnsupported if this provider has no image model
	// configured.
	GenerateImage(ctx context.Context, prompt string) (ImageResult, error)
}
