package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/executor"
	"github.com/opencode-ai/opencode/internal/logging"
	"github.com/opencode-ai/opencode/internal/provider"
	"github.com/opencode-ai/opencode/internal/verify"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

const (
	maxRepairRetries  = 6
	repairConcurrency = 3
)

// RepairPhase is the verify/repair fixed-point loop's repair half:
// given verificationErrors, it synthesizes missing assets, checkpoints
// the files it's about to touch, repairs source modules before their
// consumers, and loops back to Verify. Grounded on spec.md §4.9.
type RepairPhase struct {
	Providers *provider.Registry
	Store     *workspace.Store
	Bus       *event.Bus
}

func NewRepairPhase(providers *provider.Registry, store *workspace.Store, bus *event.Bus) *RepairPhase {
	return &RepairPhase{Providers: providers, Store: store, Bus: bus}
}

func (p *RepairPhase) Name() string { return "repair" }

func (p *RepairPhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	if !pc.Verification.HasErrors() {
		return Skip(), nil
	}

	currentErrorCount := pc.Verification.ErrorCount()

	if pc.RepairAttempts > 0 && currentErrorCount > pc.PreviousErrorCount {
		p.Bus.Emit(event.Delta("regression detected, reverting to the last checkpoint"))
		p.revertCheckpoint(ctx, pc)
	}

	pc.RepairAttempts++
	if pc.RepairAttempts > maxRepairRetries {
		p.Bus.Emit(event.Phase(types.PhaseRepairing, "max repair attempts reached"))
		p.Bus.Emit(event.Delta("I couldn't resolve every issue after several attempts, so I'm delivering what I have."))
		pc.Verification = types.VerificationErrors{}
		pc.FileCheckpoint = nil
		return Continue(), nil
	}

	p.Bus.Emit(event.Phase(types.PhaseRepairing, fmt.Sprintf("repairing (attempt %d of %d)", pc.RepairAttempts, maxRepairRetries)))

	if err := p.synthesizeAssets(ctx, pc); err != nil {
		logging.Warn().Err(err).Msg("repair: asset synthesis")
	}

	entrypoint := findEntrypoint(p.Store)
	filesToFix := verify.FilesToFix(pc.Verification, entrypoint)
	sourceModules := verify.SourceModules(filesToFix, pc.Verification)

	p.checkpoint(ctx, pc, filesToFix)

	llm, err := p.Providers.Default()
	if err != nil {
		return Outcome{}, fmt.Errorf("repair: default provider: %w", err)
	}
	exec := executor.New(llm, 0)
	installed := readInstalledPackages(ctx, p.Store)

	moduleSet := make(map[string]bool, len(sourceModules))
	for _, m := range sourceModules {
		moduleSet[m] = true
	}
	var consumers []string
	for _, f := range filesToFix {
		if !moduleSet[f] {
			consumers = append(consumers, f)
		}
	}

	// Source modules repair first, with bounded concurrency, so their
	// consumers are repaired against the new exports rather than the
	// stale ones that caused the original error.
	p.repairBatch(ctx, exec, sourceModules, pc, entrypoint, installed)
	p.repairBatch(ctx, exec, consumers, pc, entrypoint, installed)

	// Store this round's starting error count as the baseline the next
	// round's regression check compares against.
	pc.PreviousErrorCount = currentErrorCount

	return LoopTo("verify"), nil
}

// checkpoint snapshots the current content of every file about to be
// repaired, so a regression can be reverted to this exact state.
func (p *RepairPhase) checkpoint(ctx context.Context, pc *types.PipelineContext, files []string) {
	pc.FileCheckpoint = make(map[string]string, len(files))
	for _, f := range files {
		if !p.Store.Exists(f) {
			continue
		}
		content, err := p.Store.ReadFile(ctx, f)
		if err != nil {
			continue
		}
		pc.FileCheckpoint[f] = content
	}
}

func (p *RepairPhase) revertCheckpoint(ctx context.Context, pc *types.PipelineContext) {
	for f, content := range pc.FileCheckpoint {
		if _, err := p.Store.WriteFile(ctx, f, content); err != nil {
			logging.Warn().Err(err).Str("file", f).Msg("repair: revert checkpoint")
		}
	}
}

// repairBatch runs Repair's per-file strategy against files with
// bounded concurrency, ignoring individual failures (a file that can't
// be repaired this round is left for the next Verify to re-report).
func (p *RepairPhase) repairBatch(ctx context.Context, exec *executor.Executor, files []string, pc *types.PipelineContext, entrypoint string, installed map[string]bool) {
	if len(files) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repairConcurrency)

	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := p.repairFile(gctx, exec, f, pc, entrypoint, installed); err != nil {
				logging.Warn().Err(err).Str("file", f).Msg("repair: file repair failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *RepairPhase) repairFile(ctx context.Context, exec *executor.Executor, filePath string, pc *types.PipelineContext, entrypoint string, installed map[string]bool) error {
	priorContent := ""
	if p.Store.Exists(filePath) {
		if content, err := p.Store.ReadFile(ctx, filePath); err == nil {
			priorContent = content
		}
	}

	req := executor.Request{
		SessionID:    pc.SessionID,
		FilePath:     filePath,
		Prompt:       "Fix the problems described below without changing this file's purpose.",
		FileManifest: pc.ExistingFiles,
		PriorContent: priorContent,
		Feedback:     buildRepairReport(filePath, pc.Verification),
		IsEntrypoint: filePath == entrypoint,
	}

	content, _, err := exec.GenerateFileWithPreflight(ctx, p.Store, req, nil, installed)
	if err != nil {
		return err
	}

	_, err = p.Store.WriteFile(ctx, filePath, content)
	return err
}

// buildRepairReport concatenates every verification finding that names
// filePath into a feedback block, grouped by error class (syntax/type
// errors first, then lint, then missing imports) so the model sees the
// most structurally important problems first.
func buildRepairReport(filePath string, errs types.VerificationErrors) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Problems found in %s:\n", filePath))

	for _, t := range errs.TSCErrors {
		if t.FilePath != filePath {
			continue
		}
		fmt.Fprintf(&sb, "- type error %s at line %d: %s\n", t.Code, t.Line, t.Message)
	}
	for _, l := range errs.LintResults {
		if l.FilePath != filePath {
			continue
		}
		fmt.Fprintf(&sb, "- lint (%s) at line %d: %s\n", l.Rule, l.Line, l.Message)
	}
	for _, m := range errs.MissingImportErrors {
		if m.FilePath != filePath {
			continue
		}
		if m.Suggestion != "" {
			fmt.Fprintf(&sb, "- import %q does not resolve; did you mean %q?\n", m.Specifier, m.Suggestion)
		} else {
			fmt.Fprintf(&sb, "- import %q does not resolve to any file or package\n", m.Specifier)
		}
	}

	return sb.String()
}

// synthesizeAssets creates a placeholder file for every missing-import
// finding whose specifier resolves to a stylesheet or SVG path, so the
// next type-check/lint pass no longer trips over an asset that simply
// doesn't exist yet.
func (p *RepairPhase) synthesizeAssets(ctx context.Context, pc *types.PipelineContext) error {
	for _, m := range pc.Verification.MissingImportErrors {
		ext := strings.ToLower(path.Ext(m.Specifier))
		if ext != ".css" && ext != ".scss" && ext != ".less" && ext != ".svg" {
			continue
		}
		target := path.Clean(path.Join(path.Dir(m.FilePath), m.Specifier))
		if p.Store.Exists(target) {
			continue
		}
		content := "/* generated placeholder */\n"
		if ext == ".svg" {
			content = "<svg></svg>"
		}
		if _, err := p.Store.WriteFile(ctx, target, content); err != nil {
			return err
		}
	}
	return nil
}
