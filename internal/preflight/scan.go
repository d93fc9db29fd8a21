package preflight

import (
	"regexp"
	"strings"
)

type importRegexes struct {
	staticFrom *regexp.Regexp // import ... from '...' / export ... from '...'
	bareImport *regexp.Regexp // import '...'
	dynamic    *regexp.Regexp // import('...')
	require    *regexp.Regexp // require('...')
}

func newImportRegexes() importRegexes {
	return importRegexes{
		staticFrom: regexp.MustCompile(`(?:import|export)(?:\s+type)?\s+(?:[^'"]*?\s+from\s+)?['"]([^'"]+)['"]`),
		bareImport: regexp.MustCompile(`import\s+['"]([^'"]+)['"]`),
		dynamic:    regexp.MustCompile(`import\(\s*['"]([^'"]+)['"]\s*\)`),
		require:    regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`),
	}
}

// extractSpecifiers finds every import specifier in content and
// classifies it.
func extractSpecifiers(file, content string) []Specifier {
	seen := map[string]bool{}
	var out []Specifier

	collect := func(re *regexp.Regexp) {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			raw := m[1]
			if seen[raw] {
				continue
			}
			seen[raw] = true
			out = append(out, Specifier{
				Raw:    raw,
				Kind:   classify(raw),
				Source: file,
			})
		}
	}

	collect(importSpecifierRe.staticFrom)
	collect(importSpecifierRe.bareImport)
	collect(importSpecifierRe.dynamic)
	collect(importSpecifierRe.require)

	return out
}

func classify(specifier string) SpecifierKind {
	switch {
	case strings.HasPrefix(specifier, "."):
		return KindRelative
	case strings.HasPrefix(specifier, "/"),
		strings.Contains(specifier, "://"),
		strings.HasPrefix(specifier, "node:"),
		strings.HasPrefix(specifier, "data:"):
		return KindAbsolute
	default:
		return KindBare
	}
}
