// Package memory is the orchestrator's Project Memory: a per-session
// Markdown file with named sections (architecture, components, file
// tree) that is safely appended/updated across turns and serialized
// back into prompts.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

const (
	SectionArchitecture = "Architecture"
	SectionComponents   = "Components"
	SectionFileTree     = "File Tree"
	SectionHistory      = "Recent Changes"
)

// sectionOrder fixes the order sections render in when the file is
// rewritten, regardless of update order.
var sectionOrder = []string{SectionArchitecture, SectionComponents, SectionFileTree, SectionHistory}

// Memory holds one session's project-memory document, atomically
// persisted to a single Markdown file.
type Memory struct {
	mu       sync.Mutex
	path     string
	sections map[string]string
}

// Load reads path if it exists (parsing it back into named sections)
// or starts an empty Memory for a new session.
func Load(path string) (*Memory, error) {
	m := &Memory{path: path, sections: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("memory: read %s: %w", path, err)
	}
	m.sections = parseSections(string(data))
	return m, nil
}

// Set replaces a section's content outright.
func (m *Memory) Set(section, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[section] = strings.TrimRight(content, "\n")
}

// Append adds content to the end of a section, on its own line.
func (m *Memory) Append(section, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.sections[section]
	if existing == "" {
		m.sections[section] = content
		return
	}
	m.sections[section] = existing + "\n" + content
}

// Get returns a section's current content, "" if it hasn't been set.
func (m *Memory) Get(section string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sections[section]
}

// Render serializes the known sections into one Markdown document, in
// sectionOrder; a section whose name is not in sectionOrder is not
// rendered.
func (m *Memory) Render() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderLocked()
}

// Save atomically writes Render's output to m's path, creating parent
// directories as needed.
func (m *Memory) Save() error {
	m.mu.Lock()
	rendered := m.renderLocked()
	m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("memory: create directory: %w", err)
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("memory: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("memory: rename into place: %w", err)
	}
	return nil
}

func (m *Memory) renderLocked() string {
	var sb strings.Builder
	for _, name := range sectionOrder {
		content, ok := m.sections[name]
		if !ok {
			continue
		}
		sb.WriteString("## ")
		sb.WriteString(name)
		sb.WriteString("\n\n")
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

var sectionHeaderRe = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)

// parseSections splits a previously-rendered Markdown document back
// into its named sections.
func parseSections(doc string) map[string]string {
	sections := make(map[string]string)
	matches := sectionHeaderRe.FindAllStringSubmatchIndex(doc, -1)
	for i, m := range matches {
		name := doc[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(doc)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		sections[name] = strings.TrimSpace(doc[bodyStart:bodyEnd])
	}
	return sections
}

// Prompt renders the document for inclusion in an LLM prompt, with a
// short preamble explaining what it is.
func (m *Memory) Prompt() string {
	rendered := m.Render()
	if strings.TrimSpace(rendered) == "" {
		return ""
	}
	return "Project memory (carried over from previous turns):\n\n" + rendered
}
