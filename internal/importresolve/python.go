package importresolve

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

func (r *Resolver) resolvePythonLines(params Params, lines []string) ([]docmodel.ImportResolutionResult, error) {
	packageRoot, err := r.finder.FindPythonPackagePath(params.Package)
	if err != nil {
		return nil, err
	}
	contextKey := params.ContextPath

	results := make([]docmodel.ImportResolutionResult, 0, len(lines))
	for _, raw := range lines {
		if cached, ok := r.cache.Get(docmodel.EcosystemPython, params.Package, contextKey, raw); ok {
			results = append(results, cached)
			continue
		}

		resolution := docmodel.ImportResolutionResult{
			Language:        docmodel.EcosystemPython,
			Package:         params.Package,
			ImportStatement: raw,
		}

		switch {
		case strings.HasPrefix(raw, "from "):
			resolvePythonFromImport(packageRoot, raw, &resolution)
		case strings.HasPrefix(raw, "import "):
			resolvePythonPlainImport(packageRoot, raw, &resolution)
		default:
			resolution.Diagnostics = append(resolution.Diagnostics, "Unsupported python import form")
		}

		r.cache.Put(docmodel.EcosystemPython, params.Package, contextKey, raw, resolution)
		results = append(results, resolution)
	}

	return results, nil
}

func resolvePythonFromImport(packageRoot, raw string, resolution *docmodel.ImportResolutionResult) {
	rest := strings.TrimPrefix(raw, "from ")
	modulePart, importPart, ok := cutOnce(rest, " import ")
	if !ok {
		resolution.Diagnostics = append(resolution.Diagnostics, "Malformed 'from ... import ...'")
		return
	}

	modSegs := splitNonEmpty(modulePart, ".")
	resolution.ModulePath = modSegs

	filePath, isPkg := pythonModuleToFile(packageRoot, modSegs)

	for _, part := range strings.Split(importPart, ",") {
		sym := strings.TrimSpace(part)
		if sym == "" {
			continue
		}
		resolution.RequestedSymbols = append(resolution.RequestedSymbols, sym)

		if filePath == "" {
			resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
				Symbol: sym,
				File:   unresolvedModuleNote(packageRoot),
				Line:   1,
				Status: docmodel.ImportNotFound,
				Note:   "Module path not found",
			})
			continue
		}

		if line, kind, found := searchPythonSymbol(filePath, sym); found {
			note := ""
			if isPkg {
				note = "__init__ module"
			}
			resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
				Symbol: sym,
				File:   filePath,
				Line:   line,
				Kind:   kind,
				Status: docmodel.ImportResolved,
				Note:   note,
			})
		} else {
			resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
				Symbol: sym,
				File:   filePath,
				Line:   1,
				Status: docmodel.ImportNotFound,
				Note:   "Symbol not found",
			})
		}
	}
}

func resolvePythonPlainImport(packageRoot, raw string, resolution *docmodel.ImportResolutionResult) {
	rest := strings.TrimPrefix(raw, "import ")
	segs := splitNonEmpty(rest, ".")
	resolution.ModulePath = segs
	if len(segs) == 0 {
		return
	}

	filePath, _ := pythonModuleToFile(packageRoot, segs)
	last := segs[len(segs)-1]

	if filePath != "" {
		resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
			Symbol: last,
			File:   filePath,
			Line:   1,
			Kind:   docmodel.KindModule,
			Status: docmodel.ImportResolved,
		})
	} else {
		resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
			Symbol: last,
			File:   unresolvedModuleNote(packageRoot),
			Line:   1,
			Status: docmodel.ImportNotFound,
			Note:   "Module path not found",
		})
	}
}

// pythonModuleToFile maps module path segments (relative to packageRoot)
// to "<segs>.py" or "<segs>/__init__.py", returning ("", false) if neither
// exists. Empty segments resolves to the package root's own __init__.py.
func pythonModuleToFile(packageRoot string, segments []string) (string, bool) {
	if len(segments) == 0 {
		initPy := filepath.Join(packageRoot, "__init__.py")
		if isFile(initPy) {
			return initPy, true
		}
		return "", false
	}

	path := packageRoot
	for _, s := range segments {
		path = filepath.Join(path, s)
	}

	filePy := path + ".py"
	if isFile(filePy) {
		return filePy, false
	}
	initPy := filepath.Join(path, "__init__.py")
	if isFile(initPy) {
		return initPy, true
	}
	return "", false
}

var (
	pythonClassRe = `(?m)^class\s+%s\b`
	pythonDefRe   = `(?m)^def\s+%s\b`
)

func searchPythonSymbol(file, symbol string) (line int, kind docmodel.ItemKind, found bool) {
	content, err := os.ReadFile(file)
	if err != nil {
		return 0, "", false
	}

	quoted := regexp.QuoteMeta(symbol)
	if loc := regexp.MustCompile(sprintfPattern(pythonClassRe, quoted)).FindIndex(content); loc != nil {
		return strings.Count(string(content[:loc[0]]), "\n") + 1, docmodel.KindClass, true
	}
	if loc := regexp.MustCompile(sprintfPattern(pythonDefRe, quoted)).FindIndex(content); loc != nil {
		return strings.Count(string(content[:loc[0]]), "\n") + 1, docmodel.KindFunction, true
	}
	return 0, "", false
}

func cutOnce(s, sep string) (before, after string, ok bool) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

func sprintfPattern(pattern, symbol string) string {
	return strings.Replace(pattern, "%s", symbol, 1)
}
