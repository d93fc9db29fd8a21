package verify

import (
	"context"

	"github.com/opencode-ai/opencode/internal/preflight"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

// RunMissingImportScan reads every file in relPaths from ws and runs
// Import Preflight against it, returning every relative import that
// resolves to no file; preflight's missing-package findings are not
// returned.
func RunMissingImportScan(ctx context.Context, ws *workspace.Store, relPaths []string, installedPackages map[string]bool) ([]types.MissingImportError, error) {
	files := make(map[string]string, len(relPaths))
	for _, p := range relPaths {
		content, err := ws.ReadFile(ctx, p)
		if err != nil {
			continue
		}
		files[p] = content
	}

	result, err := preflight.Check(ctx, ws, files, nil, installedPackages)
	if err != nil {
		return nil, err
	}

	out := make([]types.MissingImportError, 0, len(result.MissingRelativeImport))
	for _, m := range result.MissingRelativeImport {
		out = append(out, types.MissingImportError{
			FilePath:   m.Source,
			Specifier:  m.Specifier,
			Suggestion: m.Suggestion,
		})
	}
	return out, nil
}
