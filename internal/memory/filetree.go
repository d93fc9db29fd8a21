package memory

import (
	"sort"
	"strings"

	"github.com/opencode-ai/opencode/internal/workspace"
)

// RenderFileTree turns a workspace file listing into the flat,
// sorted bullet list stored in the File Tree section.
func RenderFileTree(files []workspace.FileInfo) string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		if f.IsDir {
			continue
		}
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
