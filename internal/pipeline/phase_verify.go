package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/internal/verify"
	"github.com/opencode-ai/opencode/pkg/types"
)

const verifyTimeout = 90 * time.Second

// VerifyPhase runs lint, type-check, and the missing-import scan
// against the workspace Execute just mutated, and decides whether the
// turn can proceed to Deliver or must loop back through Repair.
// Grounded on spec.md §4.8; the synthetic running-command events
// mirror the real GitResultEvent shape Execute's git_action emits so
// the terminal view renders both the same way.
type VerifyPhase struct {
	Store *workspace.Store
	Bus   *event.Bus

	// DisableLint and DisableTypeCheck skip the corresponding subprocess
	// check, for workspaces that carry no eslint/tsc configuration (and
	// for tests, which have neither binary to invoke).
	DisableLint      bool
	DisableTypeCheck bool
}

func NewVerifyPhase(store *workspace.Store, bus *event.Bus) *VerifyPhase {
	return &VerifyPhase{Store: store, Bus: bus}
}

func (p *VerifyPhase) Name() string { return "verify" }

func (p *VerifyPhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	if len(pc.FileActions) == 0 {
		return Skip(), nil
	}

	p.Bus.Emit(event.Phase(types.PhaseVerifying, "checking your changes"))
	p.Bus.Emit(event.GitResult(types.GitResultEvent{ID: "lint", Command: "eslint .", Action: "verify"}))
	p.Bus.Emit(event.GitResult(types.GitResultEvent{ID: "typecheck", Command: "tsc --noEmit", Action: "verify"}))

	outcome, err := verify.Run(ctx, p.Store, verify.Options{
		WorkspaceDir:      p.Store.Root(),
		SourceFiles:       p.sourceFiles(pc),
		ThemeFile:         findThemeFile(p.Store),
		InstalledPackages: readInstalledPackages(ctx, p.Store),
		Timeout:           verifyTimeout,
		DisableLint:       p.DisableLint,
		DisableTypeCheck:  p.DisableTypeCheck,
	})
	if err != nil {
		return Outcome{}, err
	}

	if outcome.DesignConsistencyDelta != "" {
		p.Bus.Emit(event.Delta(outcome.DesignConsistencyDelta))
	}
	if outcome.PlainLanguageDelta != "" {
		p.Bus.Emit(event.Delta(outcome.PlainLanguageDelta))
	}

	if !outcome.Errors.HasErrors() {
		pc.Verification = types.VerificationErrors{}
		pc.PreviousErrorCount = 0
		return Continue(), nil
	}

	pc.Verification = outcome.Errors
	// Only seed PreviousErrorCount ahead of Repair's first pass this
	// turn; once Repair has run at least once, it alone updates this
	// counter (at the end of each round, to the count it started that
	// round with) so its regression check compares against the right
	// baseline instead of the count this same Verify call just produced.
	if pc.RepairAttempts == 0 {
		pc.PreviousErrorCount = outcome.Errors.ErrorCount()
	}
	return Continue(), nil
}

// sourceFiles is the file set the missing-import scan and the
// design-consistency scan read: the files this turn successfully
// touched, followed by every other file in the existing-file listing
// (so an edit that only touched one file still has its siblings
// scanned).
func (p *VerifyPhase) sourceFiles(pc *types.PipelineContext) []string {
	seen := make(map[string]bool, len(pc.FileActions)+len(pc.ExistingFiles))
	var out []string
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, path)
	}
	for _, fa := range pc.FileActions {
		if fa.Action == types.FileActionComplete && fa.Error == "" {
			add(fa.FilePath)
		}
	}
	for _, f := range pc.ExistingFiles {
		add(f)
	}
	return out
}

type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// readInstalledPackages reads package.json's two dependency maps into
// the set Import Preflight checks bare specifiers against. Returns an
// empty set, never an error, so a missing or malformed manifest just
// means every bare import is reported as unresolved rather than
// failing Verify outright.
func readInstalledPackages(ctx context.Context, ws *workspace.Store) map[string]bool {
	installed := map[string]bool{}
	if !ws.Exists("package.json") {
		return installed
	}
	content, err := ws.ReadFile(ctx, "package.json")
	if err != nil {
		return installed
	}
	var manifest packageManifest
	if err := json.Unmarshal([]byte(content), &manifest); err != nil {
		return installed
	}
	for name := range manifest.Dependencies {
		installed[name] = true
	}
	for name := range manifest.DevDependencies {
		installed[name] = true
	}
	return installed
}
