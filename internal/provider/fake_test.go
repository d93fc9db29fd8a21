package provider

import (
	"context"
	"encoding/json"
)

// fakeProvider is a deterministic LLMProvider test double: no network,
// no SDK, just canned responses keyed by ID.
type fakeProvider struct {
	id         string
	text       string
	jsonReply  json.RawMessage
	image      ImageResult
	imageErr   error
	err        error
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jsonReply, nil
}

func (f *fakeProvider) GenerateImage(ctx context.Context, prompt string) (ImageResult, error) {
	if f.imageErr != nil {
		return ImageResult{}, f.imageErr
	}
	return f.image, nil
}
