package preflight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/opencode/internal/workspace"
)

func newTestWorkspace(t *testing.T) *workspace.Store {
	t.Helper()
	ws := workspace.New(t.TempDir())
	require.NoError(t, ws.Ensure())
	return ws
}

func TestCheckFindsMissingBarePackage(t *testing.T) {
	ws := newTestWorkspace(t)
	files := map[string]string{
		"src/app.tsx": `import React from "react"
import { Button } from "@acme/ui"
`,
	}
	result, err := Check(context.Background(), ws, files, nil, map[string]bool{"react": true})
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Contains(t, result.MissingPackages, "@acme/ui")
	assert.NotContains(t, result.MissingPackages, "react")
}

func TestCheckResolvesRelativeImportOnDisk(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := ws.WriteFile(context.Background(), "src/util.ts", "export const x = 1\n")
	require.NoError(t, err)

	files := map[string]string{
		"src/app.ts": `import { x } from "./util"`,
	}
	result, err := Check(context.Background(), ws, files, nil, map[string]bool{})
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestCheckResolvesRelativeImportInPlan(t *testing.T) {
	ws := newTestWorkspace(t)
	files := map[string]string{
		"src/app.ts": `import { x } from "./util"`,
	}
	result, err := Check(context.Background(), ws, files, []string{"src/util.ts"}, map[string]bool{})
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestCheckFlagsMissingRelativeImport(t *testing.T) {
	ws := newTestWorkspace(t)
	files := map[string]string{
		"src/app.ts": `import { x } from "./missing"`,
	}
	result, err := Check(context.Background(), ws, files, nil, map[string]bool{})
	require.NoError(t, err)
	require.Len(t, result.MissingRelativeImport, 1)
	assert.Equal(t, "./missing", result.MissingRelativeImport[0].Specifier)
}

func TestCheckSuggestsSiblingForNearMiss(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := ws.WriteFile(context.Background(), "src/widget.ts", "export const w = 1\n")
	require.NoError(t, err)

	files := map[string]string{
		"src/app.ts": `import { w } from "./widgt"`,
	}
	result, err := Check(context.Background(), ws, files, nil, map[string]bool{})
	require.NoError(t, err)
	require.Len(t, result.MissingRelativeImport, 1)
	assert.Equal(t, "src/widget.ts", result.MissingRelativeImport[0].Suggestion)
}

func TestCheckIgnoresAbsoluteAndURLImports(t *testing.T) {
	ws := newTestWorkspace(t)
	files := map[string]string{
		"src/app.ts": `import "node:fs"
import "/abs/path"
import "https://example.com/mod.js"
`,
	}
	result, err := Check(context.Background(), ws, files, nil, map[string]bool{})
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestFeedbackPromptDescribesFindings(t *testing.T) {
	result := Result{
		MissingPackages: []string{"@acme/ui"},
		MissingRelativeImport: []MissingImport{
			{Source: "src/app.ts", Specifier: "./missing"},
		},
	}
	prompt := FeedbackPrompt(result)
	assert.Contains(t, prompt, "@acme/ui")
	assert.Contains(t, prompt, "./missing")
}

func TestFeedbackPromptEmptyWhenOK(t *testing.T) {
	assert.Equal(t, "", FeedbackPrompt(Result{}))
}
