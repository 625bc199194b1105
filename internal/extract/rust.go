package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
	"github.com/Aman-CERP/polydocs-mcp/internal/finder"
)

// RustProcessor extracts item implementations from an extracted crate in
// the local cargo registry cache via a regex-and-brace-balancing heuristic,
// avoiding a full Rust grammar dependency.
type RustProcessor struct {
	finder *finder.Finder
}

// NewRustProcessor creates a RustProcessor backed by the default Finder.
func NewRustProcessor() *RustProcessor {
	return &RustProcessor{finder: finder.New()}
}

// GetImplementationContext implements LanguageProcessor for Rust.
func (p *RustProcessor) GetImplementationContext(_ context.Context, pkg docmodel.PackageRef, _, relativePath, itemName string) (docmodel.ImplementationContext, error) {
	version := pkg.Version
	if version == "" {
		latest, err := p.finder.FindLatestRustCrateVersion(pkg.Name)
		if err != nil {
			return docmodel.ImplementationContext{}, err
		}
		if latest == "" {
			return docmodel.ImplementationContext{}, docerrors.New(docerrors.ErrCodePackageNotFound,
				fmt.Sprintf("no locally extracted versions of crate %q were found", pkg.Name), nil)
		}
		version = latest
	}

	crateRoot, err := p.finder.FindRustCratePath(pkg.Name, version)
	if err != nil {
		return docmodel.ImplementationContext{}, err
	}

	filePath, err := resolveRustSourceFile(crateRoot, relativePath)
	if err != nil {
		return docmodel.ImplementationContext{}, err
	}

	source, err := os.ReadFile(filePath)
	if err != nil {
		return docmodel.ImplementationContext{}, docerrors.New(docerrors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read Rust source file %q", filePath), err)
	}

	code, doc, startLine, err := extractRustItem(string(source), itemName)
	if err != nil {
		return docmodel.ImplementationContext{}, err
	}

	return docmodel.ImplementationContext{
		Package:  docmodel.PackageRef{Ecosystem: docmodel.EcosystemRust, Name: pkg.Name, Version: version},
		ItemPath: relativePath + "#" + itemName,
		Doc:      doc,
		Code:     code,
		Location: docmodel.SourceLocation{FilePath: filePath, StartLine: startLine},
	}, nil
}

// resolveRustSourceFile maps a relative path to an on-disk file, trying
// "<path>", "<path>.rs" and "<path>/mod.rs" in that order.
func resolveRustSourceFile(crateRoot, relativePath string) (string, error) {
	direct := filepath.Join(crateRoot, relativePath)
	if isFile(direct) {
		return direct, nil
	}
	if !strings.HasSuffix(relativePath, ".rs") {
		withRS := filepath.Join(crateRoot, relativePath+".rs")
		if isFile(withRS) {
			return withRS, nil
		}
		modRS := filepath.Join(crateRoot, relativePath, "mod.rs")
		if isFile(modRS) {
			return modRS, nil
		}
	}
	return "", docerrors.New(docerrors.ErrCodeFileNotFound,
		fmt.Sprintf("could not resolve Rust source file %q under crate root %q", relativePath, crateRoot), nil)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

var (
	rustItemDefRe = `(?m)^(\s*(?:pub\s+(?:crate\s+)?)?(?:async\s+)?)((?:fn|struct|enum|trait|type|const|static))\s+%s\b`
	rustImplRe    = regexp.MustCompile(`(?m)^(\s*(?:pub\s+(?:crate\s+)?)?)impl\b`)
)

// extractRustItem locates itemName in source, returning its implementation
// text, any contiguous leading `///` doc comment block, and the 1-based
// line it starts on. It first looks for a direct item definition (struct,
// fn, enum, trait, type, const, static); failing that, it scans impl
// blocks for a method named itemName and returns the whole impl block.
func extractRustItem(source, itemName string) (code, doc string, startLine int, err error) {
	lines := strings.Split(source, "\n")

	itemRe := regexp.MustCompile(fmt.Sprintf(rustItemDefRe, regexp.QuoteMeta(itemName)))
	if loc := itemRe.FindStringIndex(source); loc != nil {
		startByte := loc[0]
		lineIndex := strings.Count(source[:startByte], "\n")

		endByte := findItemEnd(source, startByte)
		code = strings.TrimRight(source[startByte:endByte], " \t\r\n")
		doc = extractLeadingDocComments(lines, lineIndex)
		return code, doc, lineIndex + 1, nil
	}

	for _, loc := range rustImplRe.FindAllStringIndex(source, -1) {
		implStart := loc[0]
		braceRel := strings.IndexByte(source[implStart:], '{')
		if braceRel < 0 {
			continue
		}
		braceAbs := implStart + braceRel
		implEnd, ok := balancedBraceSpan(source, braceAbs)
		if !ok {
			continue
		}

		block := source[implStart:implEnd]
		methodRe := regexp.MustCompile(fmt.Sprintf(`(?m)^\s*(?:pub\s+(?:crate\s+)?)?(?:async\s+)?fn\s+%s\b`, regexp.QuoteMeta(itemName)))
		if methodRe.MatchString(block) {
			lineIndex := strings.Count(source[:implStart], "\n")
			doc = extractLeadingDocComments(lines, lineIndex)
			return strings.TrimRight(block, " \t\r\n"), doc, lineIndex + 1, nil
		}
	}

	return "", "", 0, docerrors.New(docerrors.ErrCodeItemNotFound,
		fmt.Sprintf("could not locate Rust item %q via heuristic extraction", itemName), nil)
}

// findItemEnd scans forward from startByte for either a balanced brace
// block or a terminating semicolon, returning the byte offset just past it.
func findItemEnd(source string, startByte int) int {
	tail := source[startByte:]

	if rel := strings.IndexByte(tail, '{'); rel >= 0 {
		bracePos := startByte + rel
		if end, ok := balancedBraceSpan(source, bracePos); ok {
			return end
		}
	}

	if rel := strings.IndexByte(tail, ';'); rel >= 0 {
		endPos := startByte + rel + 1
		if nl := strings.IndexByte(source[endPos:], '\n'); nl >= 0 {
			return endPos + nl + 1
		}
		return len(source)
	}

	return len(source)
}

// balancedBraceSpan returns the byte offset just past the closing brace
// matching the opening brace at bodyStart, or false if unbalanced.
func balancedBraceSpan(source string, bodyStart int) (int, bool) {
	if bodyStart >= len(source) || source[bodyStart] != '{' {
		return 0, false
	}
	depth := 0
	for i := bodyStart; i < len(source); i++ {
		switch source[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
			if depth < 0 {
				return 0, false
			}
		}
	}
	return 0, false
}

// extractLeadingDocComments collects the contiguous block of `///` lines
// immediately above lines[startLineIdx], stopping at the first blank or
// non-doc line.
func extractLeadingDocComments(lines []string, startLineIdx int) string {
	if startLineIdx == 0 || startLineIdx > len(lines) {
		return ""
	}

	var docsRev []string
	for idx := startLineIdx - 1; idx >= 0; idx-- {
		trimmed := strings.TrimSpace(lines[idx])
		if strings.HasPrefix(trimmed, "///") {
			docsRev = append(docsRev, strings.TrimSpace(strings.TrimPrefix(trimmed, "///")))
			continue
		}
		break
	}
	if len(docsRev) == 0 {
		return ""
	}

	for i, j := 0, len(docsRev)-1; i < j; i, j = i+1, j-1 {
		docsRev[i], docsRev[j] = docsRev[j], docsRev[i]
	}
	return strings.TrimSpace(strings.Join(docsRev, "\n"))
}
