package verify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/opencode-ai/opencode/internal/workspace"
)

var hexColorRe = regexp.MustCompile(`#[0-9a-fA-F]{6}\b|#[0-9a-fA-F]{3}\b`)

// exemptHexColors are hex literals common enough in any theme that
// flagging them as inconsistent would just be noise.
var exemptHexColors = map[string]bool{
	"#000000": true, "#ffffff": true, "#000": true, "#fff": true,
}

// DesignConsistencyDelta reads themeFile for its hex palette, then
// scans sourceFiles for hex color literals that are neither in that
// palette nor exempt. Returns a short plain-text delta naming the
// first few offenders, or "" if everything is consistent (or there is
// no theme file to compare against).
func DesignConsistencyDelta(ctx context.Context, ws *workspace.Store, themeFile string, sourceFiles []string) string {
	if themeFile == "" || !ws.Exists(themeFile) {
		return ""
	}
	themeContent, err := ws.ReadFile(ctx, themeFile)
	if err != nil {
		return ""
	}
	palette := extractHexColors(themeContent)

	type offense struct {
		file  string
		color string
	}
	var offenses []offense

	for _, f := range sourceFiles {
		if f == themeFile {
			continue
		}
		content, err := ws.ReadFile(ctx, f)
		if err != nil {
			continue
		}
		for lc := range extractHexColors(content) {
			if palette[lc] || exemptHexColors[lc] {
				continue
			}
			offenses = append(offenses, offense{file: f, color: lc})
		}
	}

	if len(offenses) == 0 {
		return ""
	}

	const maxListed = 5
	var sb strings.Builder
	sb.WriteString("Design consistency: found colors outside the theme palette:\n")
	for i, o := range offenses {
		if i >= maxListed {
			sb.WriteString(fmt.Sprintf("...and %d more\n", len(offenses)-maxListed))
			break
		}
		sb.WriteString(fmt.Sprintf("- %s uses %s\n", o.file, o.color))
	}
	return sb.String()
}

func extractHexColors(content string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range hexColorRe.FindAllString(content, -1) {
		out[strings.ToLower(m)] = true
	}
	return out
}
