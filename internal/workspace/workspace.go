// Package workspace is the orchestrator's Workspace Store: every file
// read, write, delete, and diff a turn performs against a session's
// isolated directory goes through here, so path-traversal protection
// lives in one place.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrOutsideWorkspace is returned whenever a resolved path would escape
// the session's root directory.
var ErrOutsideWorkspace = errors.New("path escapes workspace root")

// Store scopes all file operations to one session's root directory.
type Store struct {
	root string
}

// New returns a Store rooted at root. root must already exist.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the workspace's absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// SafePath resolves a client-supplied relative path against the
// workspace root, rejecting any path that would resolve outside of it
// (via "..", symlink-like absolute overrides, etc).
func (s *Store) SafePath(relPath string) (string, error) {
	cleaned := filepath.Clean("/" + relPath)
	full := filepath.Join(s.root, cleaned)

	rootWithSep := s.root
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	if full != s.root && !strings.HasPrefix(full, rootWithSep) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, relPath)
	}
	return full, nil
}

// Ensure creates the workspace root directory if it does not exist.
func (s *Store) Ensure() error {
	return os.MkdirAll(s.root, 0755)
}

// ReadFile reads a workspace-relative file's contents as text.
func (s *Store) ReadFile(ctx context.Context, relPath string) (string, error) {
	full, err := s.SafePath(relPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", relPath, err)
	}
	return string(data), nil
}

// WriteResult reports what changed about a write, for the caller to
// build a FileActionEvent from.
type WriteResult struct {
	Before       string
	After        string
	LinesAdded   int
	LinesRemoved int
	Diff         string
}

// WriteFile creates parent directories as needed and writes content to
// a workspace-relative path, returning a before/after diff summary.
func (s *Store) WriteFile(ctx context.Context, relPath, content string) (WriteResult, error) {
	full, err := s.SafePath(relPath)
	if err != nil {
		return WriteResult{}, err
	}

	before := ""
	if existing, err := os.ReadFile(full); err == nil {
		before = string(existing)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return WriteResult{}, fmt.Errorf("create directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", relPath, err)
	}

	diffText, added, removed := GenerateDiff(relPath, before, content)
	return WriteResult{
		Before:       before,
		After:        content,
		LinesAdded:   added,
		LinesRemoved: removed,
		Diff:         diffText,
	}, nil
}

// DeleteFile removes a workspace-relative file. Deleting an already-
// absent file is not an error.
func (s *Store) DeleteFile(ctx context.Context, relPath string) error {
	full, err := s.SafePath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", relPath, err)
	}
	return nil
}

// Exists reports whether a workspace-relative path exists.
func (s *Store) Exists(relPath string) bool {
	full, err := s.SafePath(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// FileInfo describes one entry returned by ListFiles.
type FileInfo struct {
	Path  string
	IsDir bool
}

// ListFiles walks the workspace root and returns every path matching
// pattern (a doublestar glob, e.g. "**/*.go"). An empty pattern matches
// everything.
func (s *Store) ListFiles(pattern string) ([]FileInfo, error) {
	if pattern == "" {
		pattern = "**/*"
	}

	var results []FileInfo
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == s.root {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, ".git/") || rel == ".git" {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			return err
		}
		if matched {
			results = append(results, FileInfo{Path: rel, IsDir: d.IsDir()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}
	return results, nil
}
