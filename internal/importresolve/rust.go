package importresolve

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

func (r *Resolver) resolveRustLines(params Params, lines []string) ([]docmodel.ImportResolutionResult, error) {
	version := params.Version
	if version == "" {
		latest, err := r.finder.FindLatestRustCrateVersion(params.Package)
		if err != nil {
			return nil, err
		}
		if latest == "" {
			return nil, docerrors.New(docerrors.ErrCodePackageNotFound,
				fmt.Sprintf("no locally extracted versions of crate %q were found", params.Package), nil)
		}
		version = latest
	}

	crateRoot, err := r.finder.FindRustCratePath(params.Package, version)
	if err != nil {
		return nil, err
	}

	reexportCache := make(map[string][]rustReexport)
	results := make([]docmodel.ImportResolutionResult, 0, len(lines))

	for _, raw := range lines {
		if cached, ok := r.cache.Get(docmodel.EcosystemRust, params.Package, "", raw); ok {
			results = append(results, cached)
			continue
		}

		resolution := docmodel.ImportResolutionResult{
			Language:        docmodel.EcosystemRust,
			Package:         params.Package,
			ImportStatement: raw,
		}

		line := strings.TrimSuffix(strings.TrimSpace(raw), ";")
		if !strings.HasPrefix(line, "use ") {
			resolution.Diagnostics = append(resolution.Diagnostics, "Not a Rust use statement")
			r.cache.Put(docmodel.EcosystemRust, params.Package, "", raw, resolution)
			results = append(results, resolution)
			continue
		}

		body := strings.TrimSpace(strings.TrimPrefix(line, "use "))
		bodyNoAlias := strings.TrimSpace(strings.SplitN(body, " as ", 2)[0])

		items, diag := expandRustUseItems(bodyNoAlias)
		resolution.Diagnostics = append(resolution.Diagnostics, diag...)

		for _, item := range items {
			resolution.RequestedSymbols = append(resolution.RequestedSymbols, item.symbol)
			modules := stripCrateRootSegment(item.modules, params.Package)
			r.resolveRustItem(crateRoot, params.Package, modules, item.symbol, reexportCache, &resolution)
		}

		r.cache.Put(docmodel.EcosystemRust, params.Package, "", raw, resolution)
		results = append(results, resolution)
	}

	return results, nil
}

type rustUseItem struct {
	modules []string
	symbol  string
}

// expandRustUseItems splits `use` body text into (module path, symbol)
// pairs, expanding a single `{A, B}` group if present.
func expandRustUseItems(body string) ([]rustUseItem, []string) {
	var diagnostics []string

	if open := strings.Index(body, "{"); open >= 0 {
		closeIdx := strings.LastIndex(body, "}")
		if closeIdx < 0 {
			return nil, []string{"Mismatched braces in use statement"}
		}
		base := strings.TrimSuffix(strings.TrimSpace(body[:open]), "::")
		baseSegments := splitNonEmpty(base, "::")

		var items []rustUseItem
		for _, part := range strings.Split(body[open+1:closeIdx], ",") {
			sym := strings.TrimSpace(part)
			if sym == "" {
				continue
			}
			items = append(items, rustUseItem{modules: baseSegments, symbol: sym})
		}
		return items, diagnostics
	}

	segs := splitNonEmpty(body, "::")
	if len(segs) == 0 {
		return nil, []string{"Empty path"}
	}
	return []rustUseItem{{modules: segs[:len(segs)-1], symbol: segs[len(segs)-1]}}, diagnostics
}

// stripCrateRootSegment removes a leading "crate" or crate-name segment
// from a use path's module list: `use demo::Widget` and `use crate::Widget`
// both refer to the crate root, not a subdirectory named "demo"/"crate".
func stripCrateRootSegment(segments []string, packageName string) []string {
	if len(segments) == 0 {
		return segments
	}
	if segments[0] == "crate" || segments[0] == packageName {
		return segments[1:]
	}
	return segments
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

type rustReexport struct {
	publicSymbol string
	targetPath   string
}

// resolveRustItem resolves one requested symbol, following `pub use`
// re-exports within the same crate to a bounded depth via a visited-files
// set (preventing cycles), and appends a Resolved or NotFound entry.
func (r *Resolver) resolveRustItem(crateRoot, packageName string, moduleSegments []string, symbol string, reexportCache map[string][]rustReexport, resolution *docmodel.ImportResolutionResult) {
	filePath, ok := resolveRustModuleFile(crateRoot, moduleSegments)
	if !ok {
		resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
			Symbol: symbol,
			File:   unresolvedModuleNote(crateRoot),
			Line:   1,
			Status: docmodel.ImportNotFound,
			Note:   "Module file not found",
		})
		return
	}

	foundAny := false
	visited := make(map[string]bool)
	queue := []string{symbol}

	for len(queue) > 0 {
		sym := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if loc, kind, lineNo, ok := searchRustSymbolInFile(filePath, sym); ok {
			foundAny = true
			resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
				Symbol: loc,
				File:   filePath,
				Line:   lineNo,
				Kind:   kind,
				Status: docmodel.ImportResolved,
			})
		}

		if visited[filePath] {
			continue
		}
		visited[filePath] = true

		reexports, ok := reexportCache[filePath]
		if !ok {
			reexports = scanRustReexports(filePath)
			reexportCache[filePath] = reexports
		}

		for _, re := range reexports {
			if re.publicSymbol != sym {
				continue
			}
			segs := splitNonEmpty(re.targetPath, "::")
			if len(segs) == 0 {
				continue
			}
			targetModules, targetSymbol := segs[:len(segs)-1], segs[len(segs)-1]
			targetModules = stripCrateRootSegment(targetModules, packageName)
			targetFile, ok := resolveRustModuleFile(crateRoot, targetModules)
			if !ok {
				continue
			}
			queue = append(queue, targetSymbol)
			if targetFile != filePath {
				if loc, kind, lineNo, ok := searchRustSymbolInFile(targetFile, targetSymbol); ok {
					foundAny = true
					resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
						Symbol: loc,
						File:   targetFile,
						Line:   lineNo,
						Kind:   kind,
						Status: docmodel.ImportResolved,
						Note:   "Resolved via re-export",
					})
				}
			}
		}
	}

	if !foundAny {
		resolution.Resolved = append(resolution.Resolved, docmodel.ImportSymbolLocation{
			Symbol: symbol,
			File:   filePath,
			Line:   1,
			Status: docmodel.ImportNotFound,
			Note:   "Symbol not found in module or re-exports",
		})
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// resolveRustModuleFile maps module path segments to a source file:
// "<seg>.rs", "<seg>/mod.rs", or the nearest existing ancestor file. Tries
// crateRoot itself first, then crateRoot/src, since a real cargo checkout
// keeps lib.rs and every module under src/ while some callers (and test
// fixtures) pass crateRoot already pointing at that source tree.
func resolveRustModuleFile(crateRoot string, segments []string) (string, bool) {
	if path, ok := resolveRustModuleFileUnder(crateRoot, segments); ok {
		return path, ok
	}
	return resolveRustModuleFileUnder(filepath.Join(crateRoot, "src"), segments)
}

func resolveRustModuleFileUnder(root string, segments []string) (string, bool) {
	if len(segments) == 0 {
		libRS := filepath.Join(root, "lib.rs")
		if isFile(libRS) {
			return libRS, true
		}
	}

	path := root
	for _, seg := range segments {
		path = filepath.Join(path, seg)
	}

	directRS := path + ".rs"
	if isFile(directRS) {
		return directRS, true
	}
	modRS := filepath.Join(path, "mod.rs")
	if isFile(modRS) {
		return modRS, true
	}

	ancestor := path
	for ancestor != root {
		if isFile(ancestor) {
			return ancestor, false
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	return "", false
}

var rustSymbolKindRe = `(?m)^(?:\s*(?:pub\s+(?:crate\s+)?)?(?:async\s+)?)((?:fn|struct|enum|trait|type|const|static))\s+%s\b`

// searchRustSymbolInFile looks for a top-level definition of symbol in
// file's contents, returning the symbol, its kind, and 1-based line number.
func searchRustSymbolInFile(file, symbol string) (foundSymbol string, kind docmodel.ItemKind, line int, ok bool) {
	content, err := os.ReadFile(file)
	if err != nil {
		return "", "", 0, false
	}

	re := regexp.MustCompile(fmt.Sprintf(rustSymbolKindRe, regexp.QuoteMeta(symbol)))
	loc := re.FindSubmatchIndex(content)
	if loc == nil {
		return "", "", 0, false
	}

	kindText := string(content[loc[2]:loc[3]])
	lineNo := strings.Count(string(content[:loc[2]]), "\n") + 1
	return symbol, rustKindFromKeyword(kindText), lineNo, true
}

func rustKindFromKeyword(keyword string) docmodel.ItemKind {
	switch keyword {
	case "fn":
		return docmodel.KindFunction
	case "struct":
		return docmodel.KindStruct
	case "enum":
		return docmodel.KindEnum
	case "trait":
		return docmodel.KindTrait
	case "type":
		return docmodel.KindTypeAlias
	case "const":
		return docmodel.KindConstant
	case "static":
		return docmodel.KindStatic
	default:
		return docmodel.KindUnknown
	}
}

var rustReexportRe = regexp.MustCompile(`(?m)^\s*pub\s+use\s+([A-Za-z0-9_:]+)::([A-Za-z0-9_]+)\s*;`)

// scanRustReexports finds `pub use base::sym;` lines in file, returning
// (public symbol name, full target path) pairs.
func scanRustReexports(file string) []rustReexport {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil
	}

	var out []rustReexport
	for _, match := range rustReexportRe.FindAllStringSubmatch(string(content), -1) {
		base, sym := match[1], match[2]
		out = append(out, rustReexport{publicSymbol: sym, targetPath: base + "::" + sym})
	}
	return out
}
