package pipeline

import "github.com/opencode-ai/opencode/internal/workspace"

// candidateThemeFiles are the workspace-relative paths checked, in
// order, for a design-token source: the first that exists is used both
// by Execute (to inject as related-file context into generation calls)
// and Verify (as the design-consistency scan's palette source).
var candidateThemeFiles = []string{
	"src/theme.ts",
	"src/theme.css",
	"src/design-tokens.json",
	"tailwind.config.ts",
	"tailwind.config.js",
}

func findThemeFile(store *workspace.Store) string {
	for _, candidate := range candidateThemeFiles {
		if store.Exists(candidate) {
			return candidate
		}
	}
	return ""
}

// candidateEntrypoints are the workspace-relative paths checked, in
// order, for the application's entrypoint file — used as the default
// executor IsEntrypoint flag and as Repair's fallback filesToFix target
// when a type-check error names no file.
var candidateEntrypoints = []string{
	"src/main.tsx",
	"src/main.ts",
	"src/index.tsx",
	"src/index.ts",
	"index.tsx",
	"index.ts",
}

func findEntrypoint(store *workspace.Store) string {
	for _, candidate := range candidateEntrypoints {
		if store.Exists(candidate) {
			return candidate
		}
	}
	return ""
}
