// Package preflight statically scans generated source for import
// specifiers before it ever reaches an install or type-check step, so
// obviously-broken imports surface as a fast, cheap diagnostic instead
// of a slow subprocess failure.
package preflight

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/opencode-ai/opencode/internal/workspace"
)

// candidateExtensions is the fixed extension table a relative import is
// probed against, plus each extension's "/index.*" form.
var candidateExtensions = []string{
	".ts", ".tsx", ".js", ".jsx",
	".css", ".scss", ".sass", ".less",
	".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".json",
}

// SpecifierKind classifies one import specifier found in source.
type SpecifierKind string

const (
	KindRelative SpecifierKind = "relative"
	KindAbsolute SpecifierKind = "absolute_or_url"
	KindBare     SpecifierKind = "bare_package"
)

// Specifier is one import found in a source file.
type Specifier struct {
	Raw    string
	Kind   SpecifierKind
	Line   int
	Source string // the file it was found in
}

// Result is the outcome of checking a batch of files.
type Result struct {
	MissingPackages       []string
	MissingRelativeImport []MissingImport
}

// MissingImport names a relative import that resolved to nothing on
// disk and nothing in the plan's about-to-be-created paths.
type MissingImport struct {
	Source     string
	Specifier  string
	Suggestion string // best-effort fuzzy match against a sibling path, if any
}

// OK reports whether the batch has zero findings.
func (r Result) OK() bool {
	return len(r.MissingPackages) == 0 && len(r.MissingRelativeImport) == 0
}

var importSpecifierRe = newImportRegexes()

// Check scans every (path, content) pair in files for import specifiers
// and classifies them against the workspace's current file tree,
// plannedPaths (workspace-relative paths the plan is about to create,
// but hasn't yet), and installedPackages (from the workspace's package
// manifest).
func Check(ctx context.Context, ws *workspace.Store, files map[string]string, plannedPaths []string, installedPackages map[string]bool) (Result, error) {
	planned := make(map[string]bool, len(plannedPaths))
	for _, p := range plannedPaths {
		planned[cleanRel(p)] = true
	}

	var missingPkgs = map[string]bool{}
	var missingRel []MissingImport

	for file, content := range files {
		for _, spec := range extractSpecifiers(file, content) {
			switch spec.Kind {
			case KindAbsolute:
				continue
			case KindBare:
				root := bareRoot(spec.Raw)
				if !installedPackages[root] {
					missingPkgs[root] = true
				}
			case KindRelative:
				if resolvesOnDisk(ws, file, spec.Raw) || resolvesInPlan(file, spec.Raw, planned) {
					continue
				}
				missingRel = append(missingRel, MissingImport{
					Source:     file,
					Specifier:  spec.Raw,
					Suggestion: suggestSibling(ws, file, spec.Raw),
				})
			}
		}
	}

	result := Result{MissingRelativeImport: missingRel}
	for pkg := range missingPkgs {
		result.MissingPackages = append(result.MissingPackages, pkg)
	}
	sort.Strings(result.MissingPackages)
	return result, nil
}

// FeedbackPrompt builds a plain-language fragment describing every
// finding in result, suitable for appending to a repair prompt.
func FeedbackPrompt(result Result) string {
	if result.OK() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Import preflight found problems:\n")
	if len(result.MissingPackages) > 0 {
		sb.WriteString(fmt.Sprintf("- Missing packages (not installed): %s\n", strings.Join(result.MissingPackages, ", ")))
	}
	for _, m := range result.MissingRelativeImport {
		if m.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("- %s imports %q, which does not exist. Did you mean %q?\n", m.Source, m.Specifier, m.Suggestion))
		} else {
			sb.WriteString(fmt.Sprintf("- %s imports %q, which does not exist.\n", m.Source, m.Specifier))
		}
	}
	return sb.String()
}

func cleanRel(p string) string {
	return strings.TrimPrefix(path.Clean("/"+filepathToSlash(p)), "/")
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func bareRoot(specifier string) string {
	if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
		return specifier
	}
	parts := strings.SplitN(specifier, "/", 2)
	return parts[0]
}

func resolvesOnDisk(ws *workspace.Store, fromFile, specifier string) bool {
	target := resolveRelative(fromFile, specifier)
	for _, candidate := range candidates(target) {
		if ws.Exists(candidate) {
			return true
		}
	}
	return false
}

func resolvesInPlan(fromFile, specifier string, planned map[string]bool) bool {
	target := resolveRelative(fromFile, specifier)
	for _, candidate := range candidates(target) {
		if planned[candidate] {
			return true
		}
	}
	return false
}

// candidates lists every on-disk form a relative specifier might
// satisfy: the bare path, the path with each known extension, and
// each extension's "/index.*" form.
func candidates(target string) []string {
	out := []string{target}
	for _, ext := range candidateExtensions {
		out = append(out, target+ext)
		out = append(out, path.Join(target, "index"+ext))
	}
	return out
}

func resolveRelative(fromFile, specifier string) string {
	dir := path.Dir(filepathToSlash(fromFile))
	return cleanRel(path.Join(dir, specifier))
}

// suggestSibling looks for the closest-named file in the same
// directory as fromFile, for when a relative import is just a
// misspelling away from resolving.
func suggestSibling(ws *workspace.Store, fromFile, specifier string) string {
	dir := path.Dir(filepathToSlash(fromFile))
	base := path.Base(specifier)

	entries, err := ws.ListFiles(path.Clean(path.Join(dir, "*")))
	if err != nil || len(entries) == 0 {
		return ""
	}

	best := ""
	bestDist := -1
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		candidateBase := path.Base(e.Path)
		dist := levenshtein.ComputeDistance(base, stripExt(candidateBase))
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = e.Path
		}
	}
	if bestDist >= 0 && bestDist <= 3 {
		return best
	}
	return ""
}

func stripExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
