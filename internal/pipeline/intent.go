package pipeline

import "regexp"

// intentPattern names one intent and the ordered regex group that
// recognizes it. Patterns are tried in this declared order; the intent
// with the most matches wins, ties broken by earlier declaration.
type intentPattern struct {
	intent string
	re     *regexp.Regexp
}

var intentPatterns = []intentPattern{
	{"fix", regexp.MustCompile(`(?i)\b(fix|bug|broken|error|crash|not working|doesn'?t work)\b`)},
	{"edit", regexp.MustCompile(`(?i)\b(edit|update|change|modify|adjust|tweak)\b`)},
	{"create", regexp.MustCompile(`(?i)\b(create|add|build|make|new|generate|implement)\b`)},
	{"explain", regexp.MustCompile(`(?i)\b(explain|what does|how does|why|what is|describe)\b`)},
	{"feedback", regexp.MustCompile(`(?i)\b(feedback|review|thoughts on|what do you think|opinion)\b`)},
	{"refactor", regexp.MustCompile(`(?i)\b(refactor|clean up|reorganize|restructure|simplify)\b`)},
	{"delete", regexp.MustCompile(`(?i)\b(delete|remove|drop|get rid of)\b`)},
	{"git", regexp.MustCompile(`(?i)\b(commit|push|pull|branch|merge|git )\b`)},
}

// classifyIntent picks the intent whose pattern matches the most times
// in text, breaking ties by declaration order in intentPatterns. Text
// matching nothing classifies as "unknown".
func classifyIntent(text string) string {
	best := "unknown"
	bestCount := 0
	for _, p := range intentPatterns {
		count := len(p.re.FindAllStringIndex(text, -1))
		if count > bestCount {
			bestCount = count
			best = p.intent
		}
	}
	return best
}

// isGenerativeIntent reports whether intent warrants the Understand
// phase's extended-thinking pre-analysis call.
func isGenerativeIntent(intent string) bool {
	switch intent {
	case "create", "edit", "fix", "refactor":
		return true
	default:
		return false
	}
}

// isConversationalIntent reports whether intent can skip PM-Analyze
// absent attachments.
func isConversationalIntent(intent string) bool {
	return intent == "explain" || intent == "feedback"
}
