package verify

import (
	"context"
	"sync"
	"time"

	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

// Options configures one Verify-phase Run.
type Options struct {
	WorkspaceDir      string
	SourceFiles       []string // every source file the turn touched or that exists, for the missing-import scan
	ThemeFile         string   // workspace-relative path to the theme source, "" if none
	InstalledPackages map[string]bool
	Timeout           time.Duration
	DisableLint       bool
	DisableTypeCheck  bool
}

// Outcome is everything the Verify phase needs to decide continue vs.
// repair and to build its progress deltas.
type Outcome struct {
	Errors                  types.VerificationErrors
	DesignConsistencyDelta  string
	PlainLanguageDelta      string
}

// Run executes lint, type-check, and the missing-import scan
// concurrently against ws, then builds the supplementary deltas from
// the merged result.
func Run(ctx context.Context, ws *workspace.Store, opts Options) (Outcome, error) {
	var (
		wg                sync.WaitGroup
		lintResults       []types.LintResult
		tscErrors         []types.TSCError
		missingImports     []types.MissingImportError
		lintErr, tscErr, scanErr error
	)

	if !opts.DisableLint {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lintResults, lintErr = RunLint(ctx, opts.WorkspaceDir, opts.Timeout)
		}()
	}
	if !opts.DisableTypeCheck {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tscErrors, tscErr = RunTypeCheck(ctx, opts.WorkspaceDir, opts.Timeout)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		missingImports, scanErr = RunMissingImportScan(ctx, ws, opts.SourceFiles, opts.InstalledPackages)
	}()
	wg.Wait()

	if lintErr != nil {
		return Outcome{}, lintErr
	}
	if tscErr != nil {
		return Outcome{}, tscErr
	}
	if scanErr != nil {
		return Outcome{}, scanErr
	}

	errs := types.VerificationErrors{
		LintResults:         lintResults,
		TSCErrors:           tscErrors,
		MissingImportErrors: missingImports,
	}

	outcome := Outcome{
		Errors:             errs,
		PlainLanguageDelta: PlainLanguageDelta(errs),
	}
	if opts.ThemeFile != "" {
		outcome.DesignConsistencyDelta = DesignConsistencyDelta(ctx, ws, opts.ThemeFile, opts.SourceFiles)
	}
	return outcome, nil
}

// FilesToFix derives the Repair phase's target file set: every file
// with a lint error, plus every file a type-check error points at.
func FilesToFix(errs types.VerificationErrors, entrypoint string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, path)
	}

	for _, l := range errs.LintResults {
		add(l.FilePath)
	}
	for _, t := range errs.TSCErrors {
		add(t.FilePath)
	}
	for _, m := range errs.MissingImportErrors {
		add(m.FilePath)
	}

	if len(out) == 0 && len(errs.TSCErrors) > 0 {
		add(entrypoint)
	}
	return out
}

// SourceModules returns the subset of filesToFix that appear as the
// "Cannot find module" target of some other file's type error — these
// must be repaired before the files that import them, so Repair fixes
// exports before consumers.
func SourceModules(filesToFix []string, errs types.VerificationErrors) []string {
	inFixSet := make(map[string]bool, len(filesToFix))
	for _, f := range filesToFix {
		inFixSet[f] = true
	}

	var modules []string
	seen := map[string]bool{}
	for _, t := range errs.TSCErrors {
		mod := ImportedModule(t.Message)
		if mod == "" {
			continue
		}
		if inFixSet[mod] && !seen[mod] {
			seen[mod] = true
			modules = append(modules, mod)
		}
	}
	return modules
}
