package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
	"github.com/Aman-CERP/polydocs-mcp/internal/finder"
)

// NodeProcessor extracts function/class implementations from an installed
// Node package, parsing JavaScript or TypeScript depending on file extension.
type NodeProcessor struct {
	finder *finder.Finder
}

// NewNodeProcessor creates a NodeProcessor backed by the default Finder.
func NewNodeProcessor() *NodeProcessor {
	return &NodeProcessor{finder: finder.New()}
}

var nodeNamedNodeKinds = map[string]struct{}{
	"function_declaration": {},
	"function_expression":  {},
	"arrow_function":       {},
	"class_declaration":    {},
	"method_definition":    {},
	"variable_declarator":  {},
}

// GetImplementationContext implements LanguageProcessor for JS/TS.
func (p *NodeProcessor) GetImplementationContext(ctx context.Context, pkg docmodel.PackageRef, contextPath, relativePath, itemName string) (docmodel.ImplementationContext, error) {
	packageRoot, err := p.finder.FindNodePackagePath(pkg.Name, contextPath)
	if err != nil {
		return docmodel.ImplementationContext{}, err
	}

	filePath := filepath.Join(packageRoot, relativePath)
	source, err := os.ReadFile(filePath)
	if err != nil {
		return docmodel.ImplementationContext{}, docerrors.New(docerrors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read Node source file %q", filePath), err)
	}

	tsLang := javascript.GetLanguage()
	if strings.HasSuffix(relativePath, ".ts") || strings.HasSuffix(relativePath, ".tsx") {
		tsLang = typescript.GetLanguage()
	}

	node, err := findNodeNamedNode(ctx, source, itemName, tsLang)
	if err != nil {
		return docmodel.ImplementationContext{}, err
	}

	code := node.Content(source)
	doc := jsDocComment(node, source)

	return docmodel.ImplementationContext{
		Package:  docmodel.PackageRef{Ecosystem: docmodel.EcosystemNode, Name: pkg.Name, Version: pkg.Version},
		ItemPath: relativePath + "#" + itemName,
		Doc:      doc,
		Code:     code,
		Location: docmodel.SourceLocation{
			FilePath:  filePath,
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
		},
	}, nil
}

func findNodeNamedNode(ctx context.Context, source []byte, itemName string, lang *sitter.Language) (*sitter.Node, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil || tree == nil {
		return nil, docerrors.New(docerrors.ErrCodeParseFailed, "failed to parse Node source", err)
	}

	var search func(node *sitter.Node) *sitter.Node
	search = func(node *sitter.Node) *sitter.Node {
		switch node.Type() {
		case "export_statement":
			if decl := node.ChildByFieldName("declaration"); decl != nil {
				if found := search(decl); found != nil {
					return found
				}
			}
		}

		if _, named := nodeNamedNodeKinds[node.Type()]; named {
			if nameNode := node.ChildByFieldName("name"); nameNode != nil && nameNode.Content(source) == itemName {
				return node
			}
		} else if nameNode := node.ChildByFieldName("name"); nameNode != nil && nameNode.Content(source) == itemName {
			return node
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			if found := search(node.Child(i)); found != nil {
				return found
			}
		}
		return nil
	}

	if found := search(tree.RootNode()); found != nil {
		return found, nil
	}
	return nil, docerrors.New(docerrors.ErrCodeItemNotFound,
		fmt.Sprintf("item %q not found in source code", itemName), nil)
}

// jsDocComment returns node's preceding block comment, stripped of leading
// `*`/`/` markers, if node is directly preceded by one.
func jsDocComment(node *sitter.Node, source []byte) string {
	if _, named := nodeNamedNodeKinds[node.Type()]; !named {
		return ""
	}
	prev := node.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}

	text := prev.Content(source)
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "/**")
		line = strings.TrimPrefix(line, "*/")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
