package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/logging"
	"github.com/opencode-ai/opencode/internal/provider"
	"github.com/opencode-ai/opencode/internal/session"
	"github.com/opencode-ai/opencode/internal/subprocess"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

const cssAmbientTypesPath = "src/vite-env.d.ts"
const cssAmbientTypesContent = `/// <reference types="vite/client" />
declare module "*.css" {
	const content: { [className: string]: string }
	export default content
}
`

const planSystemPromptTemplate = `You are the lead engineer turning an approved brief into an execution
plan. Respond with JSON only, matching this exact shape:

{
  "title": "short session title",
  "reasoning": "a sentence or two on the approach",
  "assumptions": ["..."],
  "design_decisions": ["..."],
  "tasks": [
    {"type": "create_file", "filepath": "...", "prompt": "..."},
    {"type": "edit_file", "filepath": "...", "prompt": "...", "depends_on": ["..."]},
    {"type": "delete_file", "filepath": "..."},
    {"type": "generate_image", "filepath": "...", "prompt": "..."},
    {"type": "git_action", "command": "..."},
    {"type": "chat", "content": "..."}
  ]
}

Existing files:
${existingFiles}

Project memory:
${projectContext}

Product brief:
${pmSpec}

Intent: ${intent}

Codebase summary:
${codebaseSummary}

Pre-analysis:
${thinkingAnalysis}

Request: ${request}`

// PlanPhase turns the primed context (and optional PM brief) into an
// ExecutionPlan. Grounded on spec.md §4.5; the system-instruction
// assembly-by-concatenation style and JSON-mode call follow the same
// pattern Understand and PM-Analyze use for their own LLM calls.
type PlanPhase struct {
	Providers *provider.Registry
	Store     *workspace.Store
	Sessions  *session.Service
	Bus       *event.Bus
}

func NewPlanPhase(providers *provider.Registry, store *workspace.Store, sessions *session.Service, bus *event.Bus) *PlanPhase {
	return &PlanPhase{Providers: providers, Store: store, Sessions: sessions, Bus: bus}
}

func (p *PlanPhase) Name() string { return "plan" }

func (p *PlanPhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	if err := p.ensureCSSAmbientTypes(ctx); err != nil {
		logging.Warn().Err(err).Msg("plan: ensure css ambient types")
	}

	if !p.Store.Exists("node_modules") {
		if err := p.installDependencies(ctx); err != nil {
			logging.Warn().Err(err).Msg("plan: dependency install failed, continuing")
		}
	}

	if err := p.persistTurn(ctx, pc); err != nil {
		logging.Warn().Err(err).Msg("plan: persist chat history")
	}

	llm, err := p.Providers.Default()
	if err != nil {
		return Outcome{}, fmt.Errorf("plan: default provider: %w", err)
	}

	prompt := renderPrompt(planSystemPromptTemplate, map[string]any{
		"existingFiles":    strings.Join(pc.ExistingFiles, "\n"),
		"projectContext":   pc.ProjectContext,
		"pmSpec":           renderPMSpec(pc.PM),
		"intent":           pc.Intent,
		"codebaseSummary":  pc.CodebaseSummary,
		"thinkingAnalysis": pc.ThinkingAnalysis,
		"request":          lastUserMessage(pc.Messages),
	})

	p.Bus.Emit(event.Phase(types.PhasePlanning, "writing execution plan"))
	raw, err := llm.GenerateJSON(ctx, "Respond with JSON only, no prose.", prompt)
	if err != nil {
		return Outcome{}, fmt.Errorf("plan: generate: %w", err)
	}

	var rawPlan types.RawExecutionPlan
	if err := parseJSONLoose(raw, &rawPlan); err != nil {
		p.Bus.Emit(event.Delta(string(raw)))
		p.Bus.Emit(event.Phase(types.PhaseReady, "could not plan this turn"))
		p.Bus.Emit(event.Done(pc.SessionID, types.Usage{}))
		pc.Aborted = true
		pc.Reason = "plan response was not parseable JSON"
		return Abort(), nil
	}

	var tasks []types.Task
	if err := parseJSONLoose(rawPlan.Tasks, &tasks); err != nil {
		p.Bus.Emit(event.Delta("The plan's task list was malformed, so this turn can't proceed."))
		p.Bus.Emit(event.Phase(types.PhaseReady, "malformed plan"))
		p.Bus.Emit(event.Done(pc.SessionID, types.Usage{}))
		pc.Aborted = true
		pc.Reason = "plan tasks field was not a JSON list"
		return Abort(), nil
	}

	plan := &types.ExecutionPlan{
		Title:           rawPlan.Title,
		Reasoning:       rawPlan.Reasoning,
		Assumptions:     rawPlan.Assumptions,
		DesignDecisions: rawPlan.DesignDecisions,
		Tasks:           tasks,
	}
	pc.Plan = plan

	if plan.Title != "" {
		if err := p.Sessions.SetTitle(ctx, pc.SessionID, plan.Title); err != nil {
			logging.Warn().Err(err).Msg("plan: persist title")
		}
		p.Bus.Emit(event.Metadata(plan.Title))
	}

	return Continue(), nil
}

func (p *PlanPhase) ensureCSSAmbientTypes(ctx context.Context) error {
	if !p.Store.Exists("tsconfig.json") {
		return nil
	}
	if p.Store.Exists(cssAmbientTypesPath) {
		return nil
	}
	_, err := p.Store.WriteFile(ctx, cssAmbientTypesPath, cssAmbientTypesContent)
	return err
}

func (p *PlanPhase) installDependencies(ctx context.Context) error {
	if !p.Store.Exists("package.json") {
		return nil
	}
	result, err := subprocess.Run(ctx, subprocess.Spec{
		Family:  subprocess.FamilyInstaller,
		Command: "npm",
		Args:    []string{"install"},
		Dir:     p.Store.Root(),
		OnOutput: func(chunk string) {
			p.Bus.Emit(event.GitResult(types.GitResultEvent{
				ID:     "install",
				Action: "install",
				Output: chunk,
			}))
		},
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("npm install exited %d", result.ExitCode)
	}
	return nil
}

func (p *PlanPhase) persistTurn(ctx context.Context, pc *types.PipelineContext) error {
	msg := lastUserMessageValue(pc.Messages)
	if msg == nil {
		return nil
	}

	uploadsDir := p.Sessions.UploadsDir(pc.SessionID)
	for _, att := range msg.Attachments {
		if att.Type != types.AttachmentImage {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			continue
		}
		name := att.Name
		if name == "" {
			name = att.ID
		}
		if err := writeUpload(uploadsDir, name, data); err != nil {
			logging.Warn().Err(err).Str("attachment", att.ID).Msg("plan: save attachment")
		}
	}

	return p.Sessions.AppendMessage(ctx, pc.SessionID, types.StoredMessage{ClientMessage: *msg})
}

func writeUpload(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, filepath.Base(name)), data, 0644)
}

func lastUserMessageValue(messages []types.ClientMessage) *types.ClientMessage {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return &messages[i]
		}
	}
	return nil
}

func renderPMSpec(pm *types.PMSpec) string {
	if pm == nil {
		return "(none)"
	}
	var b strings.Builder
	if len(pm.Requirements) > 0 {
		fmt.Fprintf(&b, "Requirements: %s\n", strings.Join(pm.Requirements, "; "))
	}
	if len(pm.Scope.ThisTurn) > 0 {
		fmt.Fprintf(&b, "This turn: %s\n", strings.Join(pm.Scope.ThisTurn, "; "))
	}
	if pm.Design.Theme != "" {
		fmt.Fprintf(&b, "Theme: %s, layout: %s\n", pm.Design.Theme, pm.Design.Layout)
	}
	return strings.TrimSpace(b.String())
}
