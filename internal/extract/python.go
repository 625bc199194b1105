package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
	"github.com/Aman-CERP/polydocs-mcp/internal/finder"
)

// PythonProcessor extracts function/class implementations from an
// installed Python package via tree-sitter.
type PythonProcessor struct {
	finder *finder.Finder
}

// NewPythonProcessor creates a PythonProcessor backed by the default Finder.
func NewPythonProcessor() *PythonProcessor {
	return &PythonProcessor{finder: finder.New()}
}

// GetImplementationContext implements LanguageProcessor for Python.
func (p *PythonProcessor) GetImplementationContext(ctx context.Context, pkg docmodel.PackageRef, _, relativePath, itemName string) (docmodel.ImplementationContext, error) {
	packageRoot, err := p.finder.FindPythonPackagePath(pkg.Name)
	if err != nil {
		return docmodel.ImplementationContext{}, err
	}

	filePath := filepath.Join(packageRoot, relativePath)
	source, err := os.ReadFile(filePath)
	if err != nil {
		return docmodel.ImplementationContext{}, docerrors.New(docerrors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read Python source file %q", filePath), err)
	}

	node, err := findPythonNamedNode(ctx, source, itemName)
	if err != nil {
		return docmodel.ImplementationContext{}, err
	}

	code := node.Content(source)
	doc := pythonDocstring(node, source)
	startLine := int(node.StartPoint().Row) + 1

	return docmodel.ImplementationContext{
		Package:  pkg,
		ItemPath: relativePath + "#" + itemName,
		Doc:      doc,
		Code:     code,
		Location: docmodel.SourceLocation{FilePath: filePath, StartLine: startLine, EndLine: int(node.EndPoint().Row) + 1},
	}, nil
}

// findPythonNamedNode walks the parsed tree for the first node whose
// "name" field matches itemName.
func findPythonNamedNode(ctx context.Context, source []byte, itemName string) (*sitter.Node, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil || tree == nil {
		return nil, docerrors.New(docerrors.ErrCodeParseFailed, "failed to parse Python source", err)
	}

	var search func(node *sitter.Node) *sitter.Node
	search = func(node *sitter.Node) *sitter.Node {
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			if nameNode.Content(source) == itemName {
				return node
			}
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

// pythonDocstring returns the first string-literal statement inside node's
// body, with its quotes stripped, or "" if node has no docstring.
func pythonDocstring(node *sitter.Node, source []byte) string {
	if node.Type() != "function_definition" && node.Type() != "class_definition" {
		return ""
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "expression_statement" {
			continue
		}
		for j := 0; j < int(stmt.ChildCount()); j++ {
			child := stmt.Child(j)
			if child.Type() == "string" {
				text := child.Content(source)
				text = strings.TrimPrefix(text, `"""`)
				text = strings.TrimPrefix(text, `'''`)
				text = strings.TrimSuffix(text, `"""`)
				text = strings.TrimSuffix(text, `'''`)
				return strings.TrimSpace(text)
			}
		}
		break
	}
	return ""
}
