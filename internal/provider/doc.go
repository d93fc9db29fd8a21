// Package provider wraps concrete LLM SDKs behind the narrow
// LLMProvider interface so the rest of the orchestrator never imports a
// vendor SDK directly.
//
// The Anthropic and OpenAI providers generate text and JSON through
// Eino chat models (github.com/cloudwego/eino, eino-ext's claude and
// openai components), which give both the same non-streaming Generate
// call and message schema; the Gemini provider calls
// google.golang.org/genai directly. Image generation is delegated to
// whichever provider actually has an image model configured; today
// that is Gemini via google.golang.org/genai, and Anthropic/OpenAI
// return ErrImageGenerationUnsupported.
//
// A Registry, built by InitializeProviders from types.Config, holds
// every constructed provider keyed by ID and resolves the configured
// default and image-generation providers for the pipeline to use.
package provider
