package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/provider"
	"github.com/opencode-ai/opencode/pkg/types"
)

const pmAgentName = "pm"

const pmSystemPromptTemplate = `You are a product manager and designer working one turn ahead of an
engineering team. Given the request, the existing codebase summary, and
the project's memory, produce a JSON object with this exact shape:

{
  "title": "short session title",
  "chat_message": "reply to use if this turn is conversational only",
  "requirements": ["..."],
  "design": {"theme": "...", "layout": "...", "typography": "...", "key_interactions": ["..."]},
  "scope": {"this_turn": ["..."], "next_turn": ["..."]},
  "suggestions": ["..."]
}

Leave "requirements" and "scope.this_turn" both empty if the request is
purely conversational and needs no file changes. Respond with JSON only.

Project context:
${projectContext}

Codebase summary:
${codebaseSummary}

Pre-analysis:
${thinkingAnalysis}

Request: ${request}`

// PMAnalyzePhase turns a request into a product/design brief ahead of
// the execution plan, or defers to Plan directly for purely
// conversational turns. Grounded on spec.md §4.4; there is no teacher
// analogue (the agent loop has no product-manager stage), so its
// system prompt follows Understand's assembly style.
type PMAnalyzePhase struct {
	Providers *provider.Registry
	Bus       *event.Bus
}

func NewPMAnalyzePhase(providers *provider.Registry, bus *event.Bus) *PMAnalyzePhase {
	return &PMAnalyzePhase{Providers: providers, Bus: bus}
}

func (p *PMAnalyzePhase) Name() string { return "pm_analyze" }

func (p *PMAnalyzePhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	if isConversationalIntent(pc.Intent) && !lastMessageHasAttachments(pc.Messages) {
		return Skip(), nil
	}

	p.Bus.Emit(event.AgentStart(pmAgentName, "Product Manager"))
	p.Bus.Emit(event.Phase(types.PhaseThinking, "drafting product brief"))

	llm, err := p.Providers.Default()
	if err != nil {
		return Outcome{}, fmt.Errorf("pm_analyze: default provider: %w", err)
	}

	prompt := renderPrompt(pmSystemPromptTemplate, map[string]any{
		"projectContext":   pc.ProjectContext,
		"codebaseSummary":  pc.CodebaseSummary,
		"thinkingAnalysis": pc.ThinkingAnalysis,
		"request":          lastUserMessage(pc.Messages),
	})

	raw, err := llm.GenerateJSON(ctx, "Respond with JSON only, no prose.", prompt)
	if err != nil {
		return Outcome{}, fmt.Errorf("pm_analyze: generate: %w", err)
	}

	var spec types.PMSpec
	if err := parseJSONLoose(raw, &spec); err != nil {
		pc.PM = &types.PMSpec{ChatMessage: string(raw)}
		p.Bus.Emit(event.Delta(string(raw)))
		p.Bus.Emit(event.AgentEnd(pmAgentName))
		return Continue(), nil
	}
	pc.PM = &spec

	p.Bus.Emit(event.Delta(renderDesignBrief(spec)))
	if spec.Title != "" {
		p.Bus.Emit(event.Metadata(spec.Title))
	}
	p.Bus.Emit(event.AgentEnd(pmAgentName))

	if spec.IsEmpty() {
		p.Bus.Emit(event.Phase(types.PhaseReady, "conversational turn"))
		p.Bus.Emit(event.Done(pc.SessionID, types.Usage{}))
		pc.Aborted = true
		pc.Reason = "conversational turn, no actionable scope"
		return Abort(), nil
	}

	return Continue(), nil
}

func lastMessageHasAttachments(messages []types.ClientMessage) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return len(messages[i].Attachments) > 0
		}
	}
	return false
}

// renderDesignBrief assembles the PM spec into the user-facing delta
// text: theme, layout, interactions, scope, and suggestions.
func renderDesignBrief(spec types.PMSpec) string {
	var b strings.Builder
	if spec.Design.Theme != "" || spec.Design.Layout != "" {
		fmt.Fprintf(&b, "**Design**: %s theme, %s layout", orPlaceholder(spec.Design.Theme), orPlaceholder(spec.Design.Layout))
		if spec.Design.Typography != "" {
			fmt.Fprintf(&b, ", %s typography", spec.Design.Typography)
		}
		b.WriteString("\n")
	}
	if len(spec.Design.KeyInteractions) > 0 {
		fmt.Fprintf(&b, "**Key interactions**: %s\n", strings.Join(spec.Design.KeyInteractions, "; "))
	}
	if len(spec.Scope.ThisTurn) > 0 {
		fmt.Fprintf(&b, "**This turn**: %s\n", strings.Join(spec.Scope.ThisTurn, "; "))
	}
	if len(spec.Scope.NextTurn) > 0 {
		fmt.Fprintf(&b, "**Later**: %s\n", strings.Join(spec.Scope.NextTurn, "; "))
	}
	if len(spec.Suggestions) > 0 {
		fmt.Fprintf(&b, "**Suggestions**: %s\n", strings.Join(spec.Suggestions, "; "))
	}
	if spec.ChatMessage != "" {
		b.WriteString(spec.ChatMessage)
	}
	return strings.TrimSpace(b.String())
}

func orPlaceholder(s string) string {
	if s == "" {
		return "unspecified"
	}
	return s
}
