package executor

import (
	"context"
	"fmt"

	"github.com/opencode-ai/opencode/internal/preflight"
	"github.com/opencode-ai/opencode/internal/workspace"
)

// MaxImportRepairRegenAttempts caps how many times GenerateFileWithPreflight
// will re-invoke the provider after an Import Preflight failure before
// giving up and surfacing the failure to the caller.
const MaxImportRepairRegenAttempts = 2

// GenerateFileWithPreflight generates req.FilePath, then runs Import
// Preflight against the result; if preflight fails, it re-invokes the
// provider with the failure appended as feedback, up to
// MaxImportRepairRegenAttempts times. Returns the last generated
// content even if preflight never clears (the caller decides whether
// to keep it), along with the final preflight result.
func (e *Executor) GenerateFileWithPreflight(ctx context.Context, ws *workspace.Store, req Request, plannedPaths []string, installedPackages map[string]bool) (string, preflight.Result, error) {
	attempt := req
	var lastContent string
	var lastResult preflight.Result

	for i := 0; i <= MaxImportRepairRegenAttempts; i++ {
		content, err := e.GenerateFile(ctx, attempt)
		if err != nil {
			return "", preflight.Result{}, err
		}
		lastContent = content

		result, err := preflight.Check(ctx, ws, map[string]string{req.FilePath: content}, plannedPaths, installedPackages)
		if err != nil {
			return "", preflight.Result{}, fmt.Errorf("executor: preflight check: %w", err)
		}
		lastResult = result

		if result.OK() {
			return content, result, nil
		}
		if i == MaxImportRepairRegenAttempts {
			break
		}

		attempt = req
		attempt.Feedback = preflight.FeedbackPrompt(result)
		attempt.PriorContent = content
	}

	return lastContent, lastResult, nil
}
