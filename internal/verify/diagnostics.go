package verify

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/opencode/pkg/types"
)

// plainLanguage maps a diagnostic code (a TS code or an ESLint rule ID)
// to a short, non-technical sentence describing the class of problem.
var plainLanguage = map[string]string{
	"TS2304": "a name is used that was never imported or declared",
	"TS2307": "an import points at a module that doesn't exist",
	"TS2322": "a value doesn't match the type it's assigned to",
	"TS2339": "code accesses a property that doesn't exist on that type",
	"TS2345": "a function is called with an argument of the wrong type",
	"TS7006": "a function parameter has no inferred or declared type",
	"no-unused-vars":        "a variable or import is declared but never used",
	"no-undef":               "code references something that isn't defined anywhere",
	"react-hooks/rules-of-hooks": "a React hook is called conditionally or outside a component",
	"import/no-unresolved":  "an import path doesn't resolve to a real file or package",
}

// PlainLanguageDelta builds a deduplicated, capped-at-5 list of
// friendly sentences describing the diagnostic codes present in errs.
func PlainLanguageDelta(errs types.VerificationErrors) string {
	seen := map[string]bool{}
	var sentences []string

	add := func(code string) {
		sentence, ok := plainLanguage[code]
		if !ok || seen[sentence] {
			return
		}
		seen[sentence] = true
		sentences = append(sentences, sentence)
	}

	for _, e := range errs.TSCErrors {
		add(e.Code)
	}
	for _, l := range errs.LintResults {
		add(l.Rule)
	}

	if len(sentences) == 0 {
		return ""
	}

	const maxListed = 5
	if len(sentences) > maxListed {
		sentences = sentences[:maxListed]
	}

	var sb strings.Builder
	sb.WriteString("In plain language:\n")
	for _, s := range sentences {
		sb.WriteString(fmt.Sprintf("- %s\n", s))
	}
	return sb.String()
}
