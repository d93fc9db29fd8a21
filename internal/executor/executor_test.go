package executor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/opencode/internal/provider"
)

type stubProvider struct {
	text  string
	err   error
	delay time.Duration
}

func (s *stubProvider) ID() string { return "stub" }

func (s *stubProvider) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubProvider) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	return nil, nil
}

func (s *stubProvider) GenerateImage(ctx context.Context, prompt string) (provider.ImageResult, error) {
	return provider.ImageResult{}, nil
}

func TestGenerateFileStripsCodeFence(t *testing.T) {
	p := &stubProvider{text: "```tsx\nexport function Widget() {}\n```"}
	e := New(p, time.Second)

	content, err := e.GenerateFile(context.Background(), Request{FilePath: "src/Widget.tsx", Prompt: "a widget"})
	require.NoError(t, err)
	assert.Equal(t, "export function Widget() {}", content)
}

func TestGenerateFileErrorsOnEmptyOutput(t *testing.T) {
	p := &stubProvider{text: "   "}
	e := New(p, time.Second)

	_, err := e.GenerateFile(context.Background(), Request{FilePath: "src/Widget.tsx"})
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestGenerateFileTimesOut(t *testing.T) {
	p := &stubProvider{text: "ok", delay: 50 * time.Millisecond}
	e := New(p, 5*time.Millisecond)

	_, err := e.GenerateFile(context.Background(), Request{FilePath: "src/Widget.tsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestBuildSystemPromptAllowsDefaultExportForEntrypoint(t *testing.T) {
	prompt := buildSystemPrompt(Request{FilePath: "src/main.tsx", IsEntrypoint: true})
	assert.Contains(t, prompt, "application entrypoint")
}

func TestBuildSystemPromptForbidsDefaultExportOtherwise(t *testing.T) {
	prompt := buildSystemPrompt(Request{FilePath: "src/Widget.tsx"})
	assert.Contains(t, prompt, "do not use a default export")
}
