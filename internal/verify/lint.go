package verify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opencode-ai/opencode/internal/subprocess"
	"github.com/opencode-ai/opencode/pkg/types"
)

// eslintMessage mirrors one entry of ESLint's --format json output.
type eslintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"` // 1 = warning, 2 = error
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

type eslintFileResult struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
}

// RunLint invokes eslint over the workspace and normalizes its JSON
// output into LintResults. A non-zero exit code from eslint is not
// itself an error here; eslint exits non-zero whenever it finds
// problems, which is the expected, parseable case.
func RunLint(ctx context.Context, workspaceDir string, timeout time.Duration) ([]types.LintResult, error) {
	result, err := subprocess.Run(ctx, subprocess.Spec{
		Family:  subprocess.FamilyLint,
		Command: "eslint",
		Args:    []string{".", "--format", "json"},
		Dir:     workspaceDir,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if result.TimedOut {
		return []types.LintResult{{
			FilePath: ".",
			Message:  "lint timed out",
			Severity: "error",
		}}, nil
	}
	return parseESLintOutput(result.Stdout, result.Stderr, result.ExitCode)
}

// parseESLintOutput normalizes eslint's --format json stdout into
// LintResults. A non-zero exit code is not itself an error; eslint
// exits non-zero whenever it finds problems, which is the expected,
// parseable case. If stdout isn't valid JSON (a config error, a crash)
// and the run failed, that failure is surfaced as a single finding
// rather than silently discarded.
func parseESLintOutput(stdout, stderr string, exitCode int) ([]types.LintResult, error) {
	var files []eslintFileResult
	if jsonErr := json.Unmarshal([]byte(stdout), &files); jsonErr != nil {
		if exitCode != 0 {
			return []types.LintResult{{
				FilePath: ".",
				Message:  firstLine(stderr, stdout),
				Severity: "error",
			}}, nil
		}
		return nil, nil
	}

	var out []types.LintResult
	for _, f := range files {
		for _, m := range f.Messages {
			severity := "warning"
			if m.Severity >= 2 {
				severity = "error"
			}
			out = append(out, types.LintResult{
				FilePath: f.FilePath,
				Line:     m.Line,
				Column:   m.Column,
				Rule:     m.RuleID,
				Message:  m.Message,
				Severity: severity,
			})
		}
	}
	return out, nil
}

func firstLine(candidates ...string) string {
	for _, c := range candidates {
		for i := 0; i < len(c); i++ {
			if c[i] == '\n' {
				if i > 0 {
					return c[:i]
				}
				continue
			}
		}
		if c != "" {
			return c
		}
	}
	return "lint failed"
}
