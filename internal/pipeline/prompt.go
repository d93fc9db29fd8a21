package pipeline

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

var (
	bracedVarRe = regexp.MustCompile(`\$\{(\w+)\}`)
	bareVarRe   = regexp.MustCompile(`\$(\w+)`)
)

// renderPrompt expands a prompt template against data: first ${var}
// and $var references (left as-is if data has no matching key), then
// the result as a Go template, so a template block can still see the
// same data map. A template that fails to parse or execute is returned
// after simple-variable expansion only, since the system prompts built
// here are assembled by concatenation rather than loaded from files a
// user could break.
func renderPrompt(tmplStr string, data map[string]any) string {
	expanded := expandSimpleVariables(tmplStr, data)

	tmpl, err := template.New("phase").Parse(expanded)
	if err != nil {
		return expanded
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return expanded
	}
	return buf.String()
}

func expandSimpleVariables(s string, data map[string]any) string {
	s = bracedVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := data[name]; ok {
			return fmt.Sprint(val)
		}
		return match
	})
	s = bareVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1:]
		if val, ok := data[name]; ok {
			return fmt.Sprint(val)
		}
		return match
	})
	return s
}

// joinSections concatenates non-empty prompt sections with a blank
// line between them.
func joinSections(sections ...string) string {
	var parts []string
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, "\n\n")
}
