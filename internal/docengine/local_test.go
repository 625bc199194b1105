package docengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

func writeCrateFile(t *testing.T, root, relPath, body string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
}

func TestFindRustDeclaration_MatchesNestedModulePath(t *testing.T) {
	root := t.TempDir()
	writeCrateFile(t, root, "src/runtime.rs", "/// The async runtime.\n///\n/// Second line.\npub struct Runtime {\n    workers: usize,\n}\n")

	decl, ok := findRustDeclaration(root, "tokio::runtime::Runtime")
	require.True(t, ok)
	assert.Equal(t, docmodel.KindStruct, decl.kind)
	assert.Contains(t, decl.signature, "pub struct Runtime")
	assert.Equal(t, "The async runtime.\nSecond line.", decl.docs)
	assert.Equal(t, 4, decl.line)
}

func TestFindRustDeclaration_NoMatchReturnsFalse(t *testing.T) {
	root := t.TempDir()
	writeCrateFile(t, root, "src/lib.rs", "pub fn helper() {}\n")

	_, ok := findRustDeclaration(root, "demo::Ghost")
	assert.False(t, ok)
}

func TestFindRustDeclaration_EmptyItemNameReturnsFalse(t *testing.T) {
	root := t.TempDir()
	_, ok := findRustDeclaration(root, "demo::")
	assert.False(t, ok)
}

func TestFetchLocalItemDoc_BuildsItemDocFromDeclaration(t *testing.T) {
	root := t.TempDir()
	writeCrateFile(t, root, "src/lib.rs", "/// Builds a thing.\npub fn make_thing() -> Thing {}\n")

	pkg := docmodel.PackageRef{Ecosystem: docmodel.EcosystemRust, Name: "demo", Version: "1.0.0"}
	doc, err := fetchLocalItemDoc(root, pkg, "demo::make_thing")
	require.NoError(t, err)
	assert.Equal(t, docmodel.KindFunction, doc.Kind)
	assert.Equal(t, "demo::make_thing", doc.Path)
	assert.Equal(t, "Builds a thing.", doc.DocMarkdown)
	assert.False(t, doc.FetchedAt.IsZero())
}

func TestFetchLocalItemDoc_NotFoundReturnsError(t *testing.T) {
	root := t.TempDir()
	writeCrateFile(t, root, "src/lib.rs", "pub fn make_thing() {}\n")

	pkg := docmodel.PackageRef{Ecosystem: docmodel.EcosystemRust, Name: "demo", Version: "1.0.0"}
	_, err := fetchLocalItemDoc(root, pkg, "demo::Ghost")
	assert.Error(t, err)
}

func TestFetchLocalSourceSnippet_ClampsContextWindowToFileBounds(t *testing.T) {
	root := t.TempDir()
	writeCrateFile(t, root, "src/lib.rs", "pub struct Only;\n")

	snippet, loc, err := fetchLocalSourceSnippet(root, "demo::Only", 5)
	require.NoError(t, err)
	assert.Contains(t, snippet, "pub struct Only;")
	assert.Equal(t, 1, loc.StartLine)
}

func TestCleanRustDocBlock_StripsSlashesAndBlankLines(t *testing.T) {
	block := "/// First line.\n///\n/// Second line.\n"
	assert.Equal(t, "First line.\nSecond line.", cleanRustDocBlock(block))
}

func TestRustKindFromKeyword_MapsEachKeyword(t *testing.T) {
	cases := map[string]docmodel.ItemKind{
		"struct": docmodel.KindStruct,
		"enum":   docmodel.KindEnum,
		"trait":  docmodel.KindTrait,
		"fn":     docmodel.KindFunction,
		"type":   docmodel.KindTypeAlias,
		"impl":   docmodel.KindUnknown,
	}
	for keyword, want := range cases {
		assert.Equal(t, want, rustKindFromKeyword(keyword), keyword)
	}
}
