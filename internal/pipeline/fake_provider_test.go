package pipeline

import (
	"context"
	"encoding/json"

	"github.com/opencode-ai/opencode/internal/provider"
)

// fakeProvider is a scripted LLMProvider for phase tests: it returns
// whatever canned text/JSON was configured rather than calling a real
// model, and records every call it received for assertions.
type fakeProvider struct {
	id string

	textReply string
	textErr   error

	jsonReply json.RawMessage
	jsonErr   error

	imageErr error

	calls []fakeCall
}

type fakeCall struct {
	kind   string
	system string
	user   string
}

func newFakeProvider(id string) *fakeProvider {
	return &fakeProvider{id: id}
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls = append(f.calls, fakeCall{kind: "text", system: systemPrompt, user: userPrompt})
	return f.textReply, f.textErr
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	f.calls = append(f.calls, fakeCall{kind: "json", system: systemPrompt, user: userPrompt})
	return f.jsonReply, f.jsonErr
}

func (f *fakeProvider) GenerateImage(ctx context.Context, prompt string) (provider.ImageResult, error) {
	f.calls = append(f.calls, fakeCall{kind: "image", user: prompt})
	if f.imageErr != nil {
		return provider.ImageResult{}, f.imageErr
	}
	return provider.ImageResult{Data: []byte("fake-image"), MimeType: "image/png"}, nil
}

func newFakeRegistry(p *fakeProvider) *provider.Registry {
	r := provider.NewRegistry()
	r.Register(p)
	r.SetDefault(p.ID())
	return r
}

func decodeEvent(payload []byte, evt any) error {
	return json.Unmarshal(payload, evt)
}
