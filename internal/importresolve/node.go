package importresolve

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

var (
	nodeImportRe       = regexp.MustCompile(`^import\s+([\s*{}\w,]*?)\s+from\s+["']([^"']+)["']`)
	nodeSimpleImportRe = regexp.MustCompile(`^import\s+["']([^"']+)["'];?`)
)

func (r *Resolver) resolveNodeLines(params Params, lines []string) ([]docmodel.ImportResolutionResult, error) {
	packageRoot, err := r.finder.FindNodePackagePath(params.Package, params.ContextPath)
	if err != nil {
		return nil, err
	}
	contextKey := params.ContextPath

	results := make([]docmodel.ImportResolutionResult, 0, len(lines))
	for _, raw := range lines {
		if cached, ok := r.cache.Get(docmodel.EcosystemNode, params.Package, contextKey, raw); ok {
			results = append(results, cached)
			continue
		}

		resolution := docmodel.ImportResolutionResult{
			Language:        docmodel.EcosystemNode,
			Package:         params.Package,
			ImportStatement: raw,
		}

		if caps := nodeImportRe.FindStringSubmatch(raw); caps != nil {
			resolveNodeDestructuredImport(packageRoot, strings.TrimSpace(caps[1]), caps[2], &resolution)
		} else if strings.HasPrefix(raw, "import ") {
			if caps := nodeSimpleImportRe.FindStringSubmatch(raw); caps != nil {
				resolveNodeModuleOnlyImport(packageRoot, caps[1], &resolution)
			} else {
				resolution.Diagnostics = append(resolution.Diagnostics, "Unsupported Node import form")
			}
		} else {
			resolution.Diagnostics = append(resolution.Diagnostics, "Unsupported Node import form")
		}

		r.cache.Put(docmodel.EcosystemNode, params.Package, contextKey, raw, resolution)
		results = append(results, resolution)
	}

	return results, nil
}

func resolveNodeDestructuredImport(packageRoot, what, modulePath string, resolution *docmodel.ImportResolutionResult) {
	filePath, isDir := nodeModuleToFile(packageRoot, modulePath)

	switch {
	case strings.HasPrefix(what, "{") && strings.HasSuffix(what, "}"):
		inner := strings.TrimSuffix(strings.TrimPrefix(what, "{"), "}")
		for _, part := range strings.Split(inner, ",") {
			sym := strings.TrimSpace(part)
			if sym == "" {
				continue
			}
			resolution.RequestedSymbols = append(resolution.RequestedSymbols, sym)
			resolveNodeSymbol(packageRoot, filePath, isDir, sym, resolution)
		}
	case strings.HasPrefix(what, "*"):
		if filePath != "" {
			resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
				Symbol: modulePath,
				File:   filePath,
				Line:   1,
				Kind:   docmodel.KindModule,
				Status: docmodel.ImportResolved,
				Note:   "namespace import",
			})
		} else {
			resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
				Symbol: modulePath,
				File:   unresolvedModuleNote(packageRoot),
				Line:   1,
				Status: docmodel.ImportNotFound,
				Note:   "Module path not found",
			})
		}
	case what != "":
		resolveNodeSymbol(packageRoot, filePath, isDir, what, resolution)
	}
}

func resolveNodeSymbol(packageRoot, filePath string, isDir bool, symbol string, resolution *docmodel.ImportResolutionResult) {
	if filePath == "" {
		resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
			Symbol: symbol,
			File:   unresolvedModuleNote(packageRoot),
			Line:   1,
			Status: docmodel.ImportNotFound,
			Note:   "Module path not found",
		})
		return
	}

	if line, kind, found := searchNodeSymbol(filePath, symbol); found {
		note := ""
		if isDir {
			note = "directory index (index.js/ts)"
		}
		resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
			Symbol: symbol,
			File:   filePath,
			Line:   line,
			Kind:   kind,
			Status: docmodel.ImportResolved,
			Note:   note,
		})
		return
	}

	resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
		Symbol: symbol,
		File:   filePath,
		Line:   1,
		Status: docmodel.ImportNotFound,
		Note:   "Symbol not found",
	})
}

func resolveNodeModuleOnlyImport(packageRoot, modulePath string, resolution *docmodel.ImportResolutionResult) {
	filePath, isDir := nodeModuleToFile(packageRoot, modulePath)
	if filePath == "" {
		resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
			Symbol: modulePath,
			File:   unresolvedModuleNote(packageRoot),
			Line:   1,
			Status: docmodel.ImportNotFound,
			Note:   "Module path not found",
		})
		return
	}

	note := ""
	if isDir {
		note = "directory index (index.js/ts)"
	}
	resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
		Symbol: modulePath,
		File:   filePath,
		Line:   1,
		Kind:   docmodel.KindModule,
		Status: docmodel.ImportResolved,
		Note:   note,
	})
}

var nodeResolveExtensions = []string{".js", ".ts", ".mjs", ".cjs"}

// nodeModuleToFile resolves an ESM module specifier to a concrete file,
// trying the path as-is, each of nodeResolveExtensions, then a directory
// index file. Returns ("", false) if nothing matches.
func nodeModuleToFile(packageRoot, modulePath string) (string, bool) {
	rel := strings.TrimPrefix(strings.TrimPrefix(modulePath, "./"), "/")
	base := filepath.Join(packageRoot, rel)

	if isFile(base) {
		return base, false
	}
	for _, ext := range nodeResolveExtensions {
		candidate := stripExt(base) + ext
		if isFile(candidate) {
			return candidate, false
		}
	}
	if info, err := os.Stat(base); err == nil && info.IsDir() {
		for _, name := range []string{"index.ts", "index.js", "index.mjs", "index.cjs"} {
			candidate := filepath.Join(base, name)
			if isFile(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

func stripExt(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path
	}
	return strings.TrimSuffix(path, ext)
}

var nodeSymbolPatterns = []struct {
	pattern string
	kind    docmodel.ItemKind
}{
	{`(?m)^export\s+class\s+%s\b`, docmodel.KindClass},
	{`(?m)^export\s+function\s+%s\b`, docmodel.KindFunction},
	{`(?m)^export\s+const\s+%s\b`, docmodel.KindConstant},
	{`(?m)^export\s+let\s+%s\b`, docmodel.KindUnknown},
	{`(?m)^export\s+var\s+%s\b`, docmodel.KindUnknown},
	{`(?m)^class\s+%s\b`, docmodel.KindClass},
	{`(?m)^function\s+%s\b`, docmodel.KindFunction},
	{`(?m)^const\s+%s\b`, docmodel.KindConstant},
}

func searchNodeSymbol(file, symbol string) (line int, kind docmodel.ItemKind, found bool) {
	content, err := os.ReadFile(file)
	if err != nil {
		return 0, "", false
	}

	quoted := regexp.QuoteMeta(symbol)
	for _, p := range nodeSymbolPatterns {
		re := regexp.MustCompile(sprintfPattern(p.pattern, quoted))
		if loc := re.FindIndex(content); loc != nil {
			return strings.Count(string(content[:loc[0]]), "\n") + 1, p.kind, true
		}
	}
	return 0, "", false
}
