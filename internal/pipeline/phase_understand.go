package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/memory"
	"github.com/opencode-ai/opencode/internal/provider"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

// clarifyingPrompt is the fixed delta Understand sends when it cannot
// tell what an unknown-intent, very short message wants.
const clarifyingPrompt = "I'm not sure what you'd like me to do yet. Could you say a bit more — for example, what you want to create, fix, or change?"

// thinkingPromptTemplate asks the four fixed questions Understand's
// extended-thinking call answers for generative intents.
const thinkingPromptTemplate = `You are reasoning privately before any plan is written. Given the request below and the current project state, answer these four questions concisely:

1. Intent: what is the user actually trying to accomplish?
2. Architecture: what existing files, components, or patterns should this build on?
3. Risks: what could go wrong or get missed?
4. Premium touches: what small additions would make this feel polished rather than minimal?

Request: ${request}

Existing files:
${codebaseSummary}

Project context:
${projectContext}`

// UnderstandPhase classifies intent, gathers the codebase and project
// memory context Plan needs, and for generative requests runs an
// extended-thinking pre-analysis call. It is the pipeline's entry
// phase, grounded on the teacher's system-prompt assembly in
// session/system.go, replacing the tool-calling agent loop with a
// single classification-and-priming step.
type UnderstandPhase struct {
	Providers *provider.Registry
	Store     *workspace.Store
	Memory    *memory.Memory
	Bus       *event.Bus
}

func NewUnderstandPhase(providers *provider.Registry, store *workspace.Store, mem *memory.Memory, bus *event.Bus) *UnderstandPhase {
	return &UnderstandPhase{Providers: providers, Store: store, Memory: mem, Bus: bus}
}

func (p *UnderstandPhase) Name() string { return "understand" }

func (p *UnderstandPhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	request := lastUserMessage(pc.Messages)
	pc.Intent = classifyIntent(request)

	files, err := p.Store.ListFiles("")
	if err != nil {
		return Outcome{}, fmt.Errorf("understand: list workspace files: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir {
			paths = append(paths, f.Path)
		}
	}
	pc.ExistingFiles = paths
	pc.CodebaseSummary = summarizeByDirectory(paths)
	pc.ProjectContext = p.Memory.Prompt()

	if pc.Intent == "unknown" && len(strings.Fields(request)) < 6 {
		p.Bus.Emit(event.Delta(clarifyingPrompt))
		p.Bus.Emit(event.Phase(types.PhaseReady, "awaiting clarification"))
		p.Bus.Emit(event.Done(pc.SessionID, types.Usage{}))
		pc.Aborted = true
		pc.Reason = "clarification requested"
		return Abort(), nil
	}

	if isGenerativeIntent(pc.Intent) {
		llm, err := p.Providers.Default()
		if err != nil {
			return Outcome{}, fmt.Errorf("understand: default provider: %w", err)
		}
		p.Bus.Emit(event.Phase(types.PhaseThinking, "analyzing request"))
		prompt := renderPrompt(thinkingPromptTemplate, map[string]any{
			"request":         request,
			"codebaseSummary": pc.CodebaseSummary,
			"projectContext":  pc.ProjectContext,
		})
		analysis, err := llm.GenerateText(ctx, "You are a careful senior engineer doing private pre-implementation analysis.", prompt)
		if err != nil {
			return Outcome{}, fmt.Errorf("understand: extended-thinking call: %w", err)
		}
		pc.ThinkingAnalysis = analysis
	}

	return Continue(), nil
}

// lastUserMessage returns the most recent user-role message's content,
// the request Understand classifies and primes context for.
func lastUserMessage(messages []types.ClientMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// summarizeByDirectory groups a flat file listing by its containing
// directory, producing the structural summary Plan's system
// instruction and Understand's extended-thinking call both read.
func summarizeByDirectory(paths []string) string {
	if len(paths) == 0 {
		return "(empty workspace)"
	}

	byDir := make(map[string][]string)
	for _, p := range paths {
		dir := "."
		if idx := strings.LastIndex(p, "/"); idx >= 0 {
			dir = p[:idx]
		}
		byDir[dir] = append(byDir[dir], p)
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var b strings.Builder
	for _, d := range dirs {
		files := byDir[d]
		sort.Strings(files)
		fmt.Fprintf(&b, "%s/\n", d)
		for _, f := range files {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
