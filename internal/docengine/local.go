package docengine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

// rustDeclaration is one `pub <kind> <name>` match found while walking a
// crate's source tree.
type rustDeclaration struct {
	file      string
	line      int
	docs      string
	signature string
	kind      docmodel.ItemKind
}

var errStopWalk = fmt.Errorf("docengine: stop walk")

// findRustDeclaration walks a locally extracted crate's source tree for a
// `pub struct|enum|trait|fn|type <name>` declaration (name is itemPath's
// last "::" segment), capturing its leading `///` doc comment block. Used
// as the fast path for both item-doc lookup and source snippets, before
// falling back to a docs.rs scrape.
func findRustDeclaration(crateRoot, itemPath string) (rustDeclaration, bool) {
	segments := strings.Split(itemPath, "::")
	itemName := segments[len(segments)-1]
	if itemName == "" {
		return rustDeclaration{}, false
	}

	pattern := fmt.Sprintf(`(?m)^(?P<docs>(?:\s*///.*\n)*)\s*(?P<sig>pub\s+(?P<kind>struct|enum|trait|fn|type)\s+%s\b[^\n]*)`,
		regexp.QuoteMeta(itemName))
	re := regexp.MustCompile(pattern)

	var found rustDeclaration
	var ok bool
	_ = filepath.WalkDir(crateRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".rs" {
			return nil
		}
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		content := string(raw)

		match := re.FindStringSubmatchIndex(content)
		if match == nil {
			return nil
		}
		names := re.SubexpNames()
		groups := submatchMap(names, match, content)

		sigStart := match[indexOfGroup(names, "sig")*2]
		found = rustDeclaration{
			file:      path,
			line:      strings.Count(content[:sigStart], "\n") + 1,
			docs:      cleanRustDocBlock(groups["docs"]),
			signature: strings.TrimSpace(groups["sig"]),
			kind:      rustKindFromKeyword(groups["kind"]),
		}
		ok = true
		return errStopWalk
	})
	return found, ok
}

// fetchLocalItemDoc adapts findRustDeclaration's result into an ItemDoc.
func fetchLocalItemDoc(crateRoot string, pkg docmodel.PackageRef, itemPath string) (docmodel.ItemDoc, error) {
	decl, ok := findRustDeclaration(crateRoot, itemPath)
	if !ok {
		return docmodel.ItemDoc{}, docerrors.New(docerrors.ErrCodeItemNotFound,
			fmt.Sprintf("item %q not found via local source scan of %q", itemPath, crateRoot), nil)
	}
	return docmodel.ItemDoc{
		Package:     pkg,
		Path:        itemPath,
		Kind:        decl.kind,
		Signature:   decl.signature,
		DocMarkdown: decl.docs,
		Source:      docmodel.SourceLocation{FilePath: decl.file, StartLine: decl.line},
		FetchedAt:   time.Now(),
	}, nil
}

// fetchLocalSourceSnippet returns up to contextLines of source on each side
// of itemPath's declaration line, read straight from the crate checkout.
func fetchLocalSourceSnippet(crateRoot, itemPath string, contextLines int) (string, docmodel.SourceLocation, error) {
	decl, ok := findRustDeclaration(crateRoot, itemPath)
	if !ok {
		return "", docmodel.SourceLocation{}, docerrors.New(docerrors.ErrCodeItemNotFound,
			fmt.Sprintf("item %q not found via local source scan of %q", itemPath, crateRoot), nil)
	}

	raw, err := os.ReadFile(decl.file)
	if err != nil {
		return "", docmodel.SourceLocation{}, docerrors.New(docerrors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read %q", decl.file), err)
	}

	lines := strings.Split(string(raw), "\n")
	startIdx := max(0, decl.line-1-contextLines)
	endIdx := min(len(lines), decl.line+contextLines)

	snippet := strings.Join(lines[startIdx:endIdx], "\n")
	loc := docmodel.SourceLocation{FilePath: decl.file, StartLine: startIdx + 1, EndLine: endIdx}
	return snippet, loc, nil
}

func indexOfGroup(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func submatchMap(names []string, match []int, content string) map[string]string {
	out := make(map[string]string, len(names))
	for i, name := range names {
		if name == "" {
			continue
		}
		start, end := match[i*2], match[i*2+1]
		if start < 0 || end < 0 {
			continue
		}
		out[name] = content[start:end]
	}
	return out
}

func cleanRustDocBlock(block string) string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimPrefix(trimmed, "///")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}

func rustKindFromKeyword(keyword string) docmodel.ItemKind {
	switch keyword {
	case "struct":
		return docmodel.KindStruct
	case "enum":
		return docmodel.KindEnum
	case "trait":
		return docmodel.KindTrait
	case "fn":
		return docmodel.KindFunction
	case "type":
		return docmodel.KindTypeAlias
	default:
		return docmodel.KindUnknown
	}
}
