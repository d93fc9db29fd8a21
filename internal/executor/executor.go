// Package executor is the orchestrator's constrained single-file code
// generator: given a filepath, a prompt, and enough surrounding context
// to get import paths right, it produces exactly the source that file
// should contain.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opencode-ai/opencode/internal/provider"
)

// ErrEmptyOutput is returned when the provider produces nothing usable
// after fence-stripping.
var ErrEmptyOutput = errors.New("executor: empty output")

const defaultTimeout = 60 * time.Second

// Request is one file's generation context.
type Request struct {
	SessionID       string
	FilePath        string
	Prompt          string
	RecentMessages  []string          // recent conversation window, oldest first
	FileManifest    []string          // every path in the workspace, for exact import resolution
	PriorContent    string            // existing content when editing, "" when creating
	RelatedFiles    map[string]string // path -> content, for cross-file context
	Feedback        string            // optional: import-preflight or repair feedback from a prior attempt
	IsEntrypoint    bool
}

// Executor generates one file's source at a time through an LLMProvider.
type Executor struct {
	provider provider.LLMProvider
	timeout  time.Duration
}

// New builds an Executor bound to a single provider. The pipeline picks
// which provider to bind per call (the configured default, or a
// per-task override) and constructs a new Executor for it.
func New(p provider.LLMProvider, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Executor{provider: p, timeout: timeout}
}

// GenerateFile produces the full source for req.FilePath.
func (e *Executor) GenerateFile(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	system := buildSystemPrompt(req)
	user := buildUserPrompt(req)

	text, err := e.provider.GenerateText(ctx, system, user)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("executor: generating %s timed out after %s", req.FilePath, e.timeout)
		}
		return "", fmt.Errorf("executor: generate %s: %w", req.FilePath, err)
	}

	content := stripCodeFence(text)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyOutput, req.FilePath)
	}
	return content, nil
}

func buildSystemPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("You generate the complete source for exactly one file in a web application workspace. ")
	sb.WriteString("Output raw source code only: no markdown, no explanation, no triple-backtick fences. ")
	sb.WriteString("Every export must be a named export")
	if req.IsEntrypoint {
		sb.WriteString(", except this file, which is the application entrypoint and may use a default export. ")
	} else {
		sb.WriteString("; do not use a default export. ")
	}
	sb.WriteString("Never reference an external image URL; use local assets or placeholders only. ")
	sb.WriteString(fmt.Sprintf("The file you are writing is exactly %q — every import you write must resolve ", req.FilePath))
	sb.WriteString("against the file manifest below or a package already in use elsewhere in the project.")
	return sb.String()
}

func buildUserPrompt(req Request) string {
	var sb strings.Builder
	if len(req.RecentMessages) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, m := range req.RecentMessages {
			sb.WriteString(m)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("File manifest:\n")
	for _, p := range req.FileManifest {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if req.PriorContent != "" {
		sb.WriteString("Current content of this file (you are editing it):\n")
		sb.WriteString(req.PriorContent)
		sb.WriteString("\n\n")
	}

	for path, content := range req.RelatedFiles {
		sb.WriteString(fmt.Sprintf("Related file %s:\n%s\n\n", path, content))
	}

	sb.WriteString(fmt.Sprintf("Task for %s:\n%s\n", req.FilePath, req.Prompt))

	if req.Feedback != "" {
		sb.WriteString("\nThe previous attempt at this file had problems you must fix:\n")
		sb.WriteString(req.Feedback)
	}

	return sb.String()
}

// stripCodeFence removes a leading/trailing ``` fence (with or without
// a language tag) that a model leaks despite the system prompt telling
// it not to.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
