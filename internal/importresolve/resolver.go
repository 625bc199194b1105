// Package importresolve maps import/use statements in Rust, Python and
// Node source back to the on-disk file and line defining each imported
// symbol, using the same local package checkouts internal/extract reads
// from.
package importresolve

import (
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
	"github.com/Aman-CERP/polydocs-mcp/internal/finder"
)

// Params describes a resolve_imports request: either a single import_line
// or a code_block (from which import-looking lines are extracted).
type Params struct {
	Language    docmodel.Ecosystem
	Package     string
	Version     string
	ContextPath string
	ImportLine  string
	CodeBlock   string
}

// Resolver resolves import statements against locally installed packages,
// backed by a shared TTL'd cache across calls.
type Resolver struct {
	finder *finder.Finder
	cache  *Cache
}

// New creates a Resolver backed by the default Finder and a fresh cache.
func New() *Resolver {
	return &Resolver{finder: finder.New(), cache: NewCache()}
}

// InvalidatePackage drops every cached resolution for lang/pkg, for callers
// (the doc engine's package-root watcher) that observe a package's files
// change on disk and want resolve_imports to stop serving stale results
// before the cache's TTL would naturally expire them.
func (r *Resolver) InvalidatePackage(lang docmodel.Ecosystem, pkg string) {
	r.cache.InvalidatePackage(lang, pkg)
}

// Resolve processes every import line in params and returns the aggregate
// response.
func (r *Resolver) Resolve(params Params) (docmodel.ImportResolutionResponse, error) {
	lines := extractImportLines(params)

	var diagnostics []string
	if len(lines) == 0 {
		diagnostics = append(diagnostics, "No import lines detected.")
	}

	var results []docmodel.ImportResolutionResult

	switch params.Language {
	case docmodel.EcosystemRust:
		rr, err := r.resolveRustLines(params, lines)
		if err != nil {
			return docmodel.ImportResolutionResponse{}, err
		}
		results = rr
	case docmodel.EcosystemPython:
		rr, err := r.resolvePythonLines(params, lines)
		if err != nil {
			return docmodel.ImportResolutionResponse{}, err
		}
		results = rr
	case docmodel.EcosystemNode:
		rr, err := r.resolveNodeLines(params, lines)
		if err != nil {
			return docmodel.ImportResolutionResponse{}, err
		}
		results = rr
	default:
		return docmodel.ImportResolutionResponse{}, docerrors.New(docerrors.ErrCodeInvalidEcosystem,
			"unsupported import resolution language: "+string(params.Language), nil)
	}

	anyResolved := false
	for _, result := range results {
		for _, sym := range result.Resolved {
			if sym.Status == docmodel.ImportResolved {
				anyResolved = true
				break
			}
		}
	}

	return docmodel.ImportResolutionResponse{
		Results:     results,
		Diagnostics: diagnostics,
		AnyResolved: anyResolved,
	}, nil
}

// extractImportLines returns ImportLine verbatim (trimmed) if set, else
// every line of CodeBlock that looks like an import statement.
func extractImportLines(params Params) []string {
	if strings.TrimSpace(params.ImportLine) != "" {
		return []string{strings.TrimSpace(params.ImportLine)}
	}

	var lines []string
	for _, raw := range strings.Split(params.CodeBlock, "\n") {
		t := strings.TrimSpace(raw)
		if strings.HasPrefix(t, "use ") || strings.HasPrefix(t, "import ") ||
			strings.HasPrefix(t, "from ") || strings.HasPrefix(t, "export ") {
			lines = append(lines, t)
		}
	}
	return lines
}

func unresolvedModuleNote(root string) string {
	return root + "/(unresolved module)"
}
