package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// parseJSONLoose decodes raw into target, tolerating the ways a chat
// model's "respond with JSON" instruction still gets violated: a
// direct parse is tried first, then the response with any
// ```json ... ``` fence stripped, then the substring between the first
// '{' and the last '}'. Returns the first parse error if none succeed.
func parseJSONLoose(raw []byte, target any) error {
	attempts := [][]byte{raw, stripFence(raw)}
	if sub := braceSubstring(raw); sub != nil {
		attempts = append(attempts, sub)
	}

	var firstErr error
	for _, attempt := range attempts {
		if len(bytes.TrimSpace(attempt)) == 0 {
			continue
		}
		err := json.Unmarshal(attempt, target)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("parseJSONLoose: empty response")
	}
	return firstErr
}

func stripFence(raw []byte) []byte {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "```") {
		return raw
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return raw
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return []byte(strings.TrimSpace(strings.Join(lines, "\n")))
}

func braceSubstring(raw []byte) []byte {
	s := string(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < 0 || end < start {
		return nil
	}
	return []byte(s[start : end+1])
}
