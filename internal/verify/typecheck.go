package verify

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opencode-ai/opencode/internal/subprocess"
	"github.com/opencode-ai/opencode/pkg/types"
)

// tscLineRe matches tsc's default diagnostic line format:
// "src/app.ts(12,5): error TS2304: Cannot find name 'Foo'."
var tscLineRe = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): error (TS\d+): (.+)$`)

// RunTypeCheck invokes tsc --noEmit over the workspace and normalizes
// its diagnostic lines into TSCErrors.
func RunTypeCheck(ctx context.Context, workspaceDir string, timeout time.Duration) ([]types.TSCError, error) {
	result, err := subprocess.Run(ctx, subprocess.Spec{
		Family:  subprocess.FamilyTypeCheck,
		Command: "tsc",
		Args:    []string{"--noEmit", "--pretty", "false"},
		Dir:     workspaceDir,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if result.TimedOut {
		return []types.TSCError{{FilePath: ".", Message: "type-check timed out"}}, nil
	}
	return parseTscOutput(result.Stdout), nil
}

// parseTscOutput normalizes tsc's line-oriented diagnostic output into
// TSCErrors.
func parseTscOutput(stdout string) []types.TSCError {
	var out []types.TSCError
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		m := tscLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		out = append(out, types.TSCError{
			FilePath: m[1],
			Line:     lineNum,
			Column:   col,
			Code:     m[4],
			Message:  m[5],
		})
	}
	return out
}

// ImportedModule extracts the module specifier a TS2307/TS2306-style
// "Cannot find module 'X'" error names, for Repair's sourceModules
// derivation. Returns "" if the message doesn't name a module.
func ImportedModule(msg string) string {
	const marker = "Cannot find module '"
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	end := strings.IndexByte(rest, '\'')
	if end < 0 {
		return ""
	}
	return rest[:end]
}
