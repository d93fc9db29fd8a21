package provider

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/opencode-ai/opencode/pkg/types"
)

// Registry holds every provider constructed from configuration, keyed
// by ID, plus the resolved default and image-generation providers.
type Registry struct {
	mu              sync.RWMutex
	providers       map[string]LLMProvider
	defaultProvider string
	imageProvider   string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]LLMProvider)}
}

// Register adds a provider to the registry, overwriting any existing
// entry with the same ID.
func (r *Registry) Register(p LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// SetDefault marks an already-registered provider as the default.
// Exposed so callers assembling a registry outside InitializeProviders
// (tests, or a future config hot-reload) can pick the default without
// re-deriving InitializeProviders' fallback order.
func (r *Registry) SetDefault(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultProvider = id
}

// Get retrieves a provider by ID.
func (r *Registry) Get(id string) (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", id)
	}
	return p, nil
}

// Default returns the provider configured as the pipeline's default
// text/JSON generation backend.
func (r *Registry) Default() (LLMProvider, error) {
	r.mu.RLock()
	id := r.defaultProvider
	r.mu.RUnlock()
	if id == "" {
		return nil, fmt.Errorf("no default provider configured")
	}
	return r.Get(id)
}

// ImageProvider returns the provider capable of GenerateImage. Gemini
// is the only provider wired with an image model; if it isn't
// registered, callers fall back to the default provider and should
// expect ErrImageGenerationUnsupported.
func (r *Registry) ImageProvider() (LLMProvider, error) {
	r.mu.RLock()
	id := r.imageProvider
	r.mu.RUnlock()
	if id == "" {
		return r.Default()
	}
	return r.Get(id)
}

// List returns every registered provider.
func (r *Registry) List() []LLMProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LLMProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// InitializeProviders constructs anthropic, openai, and gemini
// providers from cfg.Providers (falling back to well-known environment
// variables for any provider left unconfigured) and registers those
// that have credentials. A provider missing credentials is skipped
// rather than treated as fatal, since the pipeline only needs whichever
// ones the operator actually wants to use.
func InitializeProviders(ctx context.Context, cfg *types.Config) (*Registry, error) {
	registry := NewRegistry()

	if pc, ok := cfg.Providers["anthropic"]; ok || os.Getenv("ANTHROPIC_API_KEY") != "" {
		p, err := NewAnthropicProvider(ctx, AnthropicConfig{
			APIKey:  pc.APIKey,
			Model:   pc.Model,
			BaseURL: pc.BaseURL,
		})
		if err == nil {
			registry.Register(p)
		}
	}

	if pc, ok := cfg.Providers["openai"]; ok || os.Getenv("OPENAI_API_KEY") != "" {
		p, err := NewOpenAIProvider(ctx, OpenAIConfig{
			APIKey:  pc.APIKey,
			Model:   pc.Model,
			BaseURL: pc.BaseURL,
		})
		if err == nil {
			registry.Register(p)
		}
	}

	if pc, ok := cfg.Providers["gemini"]; ok || os.Getenv("GOOGLE_API_KEY") != "" {
		p, err := NewGeminiProvider(ctx, GeminiConfig{
			APIKey:     pc.APIKey,
			Model:      pc.Model,
			ImageModel: pc.ImageModel,
		})
		if err == nil {
			registry.Register(p)
			registry.mu.Lock()
			registry.imageProvider = "gemini"
			registry.mu.Unlock()
		}
	}

	registry.mu.Lock()
	if cfg.Provider != "" {
		if _, ok := registry.providers[cfg.Provider]; ok {
			registry.defaultProvider = cfg.Provider
		}
	}
	if registry.defaultProvider == "" {
		if _, ok := registry.providers["anthropic"]; ok {
			registry.defaultProvider = "anthropic"
		} else {
			for id := range registry.providers {
				registry.defaultProvider = id
				break
			}
		}
	}
	registry.mu.Unlock()

	if len(registry.providers) == 0 {
		return registry, fmt.Errorf("no LLM provider configured")
	}
	return registry, nil
}
