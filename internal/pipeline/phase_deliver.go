package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencode-ai/opencode/internal/devserver"
	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/logging"
	"github.com/opencode-ai/opencode/internal/memory"
	"github.com/opencode-ai/opencode/internal/provider"
	"github.com/opencode-ai/opencode/internal/session"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

const summaryPromptTemplate = `Summarize this turn for the user in a few friendly sentences. Don't
repeat the file list verbatim, describe what changed and why it
matters.

Request: ${request}

Files touched:
${fileActions}

Terminal actions:
${gitActions}

Verification: ${verificationSummary}`

// DeliverPhase is the pipeline's final phase: starts the dev server
// when the turn produced mutations, summarizes the turn, persists the
// synthesized assistant message, updates project memory, and emits the
// terminal ready/done pair. Grounded on spec.md §4.10.
type DeliverPhase struct {
	Providers  *provider.Registry
	Store      *workspace.Store
	Sessions   *session.Service
	DevServers *devserver.Manager
	Memory     *memory.Memory
	Bus        *event.Bus
}

func NewDeliverPhase(providers *provider.Registry, store *workspace.Store, sessions *session.Service, devServers *devserver.Manager, mem *memory.Memory, bus *event.Bus) *DeliverPhase {
	return &DeliverPhase{Providers: providers, Store: store, Sessions: sessions, DevServers: devServers, Memory: mem, Bus: bus}
}

func (p *DeliverPhase) Name() string { return "deliver" }

func (p *DeliverPhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	if p.hasMutations(pc) {
		if ref, err := p.DevServers.EnsureRunning(ctx, pc.SessionID, p.Store.Root()); err != nil {
			logging.Warn().Err(err).Msg("deliver: dev server did not start")
		} else {
			p.Bus.Emit(event.Preview(ref.URL))
			if err := p.Sessions.SetDevServer(ctx, pc.SessionID, ref); err != nil {
				logging.Warn().Err(err).Msg("deliver: persist dev server ref")
			}
		}
	}

	summary := p.summarize(ctx, pc)
	if summary != "" {
		p.Bus.Emit(event.Summary(summary))
	}

	p.updateMemory(ctx, pc)

	if err := p.persistAssistantTurn(ctx, pc, summary); err != nil {
		logging.Warn().Err(err).Msg("deliver: persist assistant turn")
	}

	p.Bus.Emit(event.Phase(types.PhaseReady, "done"))
	p.Bus.Emit(event.Done(pc.SessionID, types.Usage{}))

	return Continue(), nil
}

func (p *DeliverPhase) hasMutations(pc *types.PipelineContext) bool {
	if pc.Plan == nil {
		return false
	}
	for _, t := range pc.Plan.Tasks {
		if t.IsFileMutation() {
			return true
		}
	}
	return false
}

func (p *DeliverPhase) summarize(ctx context.Context, pc *types.PipelineContext) string {
	llm, err := p.Providers.Default()
	if err != nil {
		return ""
	}

	prompt := renderPrompt(summaryPromptTemplate, map[string]any{
		"request":             lastUserMessage(pc.Messages),
		"fileActions":         renderFileActionList(pc.FileActions),
		"gitActions":          renderGitActionList(pc.GitResults),
		"verificationSummary": renderVerificationSummary(pc.Verification),
	})

	text, err := llm.GenerateText(ctx, "Reply with plain prose, no markdown headings.", prompt)
	if err != nil {
		logging.Warn().Err(err).Msg("deliver: summary call failed")
		return ""
	}
	return strings.TrimSpace(text)
}

func renderFileActionList(actions []types.FileActionEvent) string {
	if len(actions) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, a := range actions {
		status := "updated"
		if a.Error != "" {
			status = "failed: " + a.Error
		}
		fmt.Fprintf(&sb, "- %s (%s)\n", a.FilePath, status)
	}
	return sb.String()
}

func renderGitActionList(actions []types.GitResultEvent) string {
	if len(actions) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, a := range actions {
		status := "ok"
		if a.Error != "" {
			status = "failed: " + a.Error
		}
		fmt.Fprintf(&sb, "- %s (%s)\n", a.Command, status)
	}
	return sb.String()
}

func renderVerificationSummary(errs types.VerificationErrors) string {
	if !errs.HasErrors() {
		return "clean"
	}
	return fmt.Sprintf("%d issue(s) remain unresolved", errs.ErrorCount())
}

// updateMemory refreshes the architecture and file-tree sections and
// appends this turn's change list to the recent-changes section, then
// persists the document to disk.
func (p *DeliverPhase) updateMemory(ctx context.Context, pc *types.PipelineContext) {
	if p.Memory == nil {
		return
	}

	if len(pc.FileActions) > 0 {
		var changed []string
		for _, a := range pc.FileActions {
			if a.Error == "" {
				changed = append(changed, a.FilePath)
			}
		}
		if len(changed) > 0 {
			p.Memory.Append(memory.SectionHistory, fmt.Sprintf("Turn: %s", strings.Join(changed, ", ")))
		}
	}

	if pc.CodebaseSummary != "" {
		p.Memory.Set(memory.SectionFileTree, pc.CodebaseSummary)
	}
	if pc.ThinkingAnalysis != "" {
		p.Memory.Set(memory.SectionArchitecture, pc.ThinkingAnalysis)
	}

	if err := p.Memory.Save(); err != nil {
		logging.Warn().Err(err).Msg("deliver: save project memory")
	}
}

func (p *DeliverPhase) persistAssistantTurn(ctx context.Context, pc *types.PipelineContext, summary string) error {
	msg := types.StoredMessage{
		ClientMessage: types.ClientMessage{
			Role:    types.RoleAssistant,
			Content: summary,
		},
		Transparency:      pc.Transparency,
		ServerFileActions: pc.FileActions,
		GitActions:        pc.GitResults,
		Summary:           summary,
	}
	return p.Sessions.AppendMessage(ctx, pc.SessionID, msg)
}
