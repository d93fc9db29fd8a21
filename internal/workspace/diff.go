package workspace

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// GenerateDiff computes a unified diff between before and after,
// reporting the file-header-prefixed patch text alongside added and
// removed line counts.
func GenerateDiff(relPath, before, after string) (diffText string, added, removed int) {
	if before == after {
		return "", 0, 0
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += countLines(d.Text)
		}
	}

	patches := dmp.PatchMake(before, diffs)
	patchText := dmp.PatchToText(patches)
	if patchText == "" {
		return "", added, removed
	}

	var b2 strings.Builder
	if relPath != "" {
		fmt.Fprintf(&b2, "--- %s\n", relPath)
		fmt.Fprintf(&b2, "+++ %s\n", relPath)
	}
	b2.WriteString(patchText)
	return b2.String(), added, removed
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		lines++
	}
	return lines
}
