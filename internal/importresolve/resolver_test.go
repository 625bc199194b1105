package importresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

func TestExtractImportLines_PrefersExplicitImportLine(t *testing.T) {
	lines := extractImportLines(Params{ImportLine: "  import demo  ", CodeBlock: "use other::Thing;"})
	assert.Equal(t, []string{"import demo"}, lines)
}

func TestExtractImportLines_ScansCodeBlockForImportLookingLines(t *testing.T) {
	block := "use demo::Widget;\nlet x = 1;\nfrom a import b\nexport { c } from \"./c\"\n"
	lines := extractImportLines(Params{CodeBlock: block})
	assert.Equal(t, []string{"use demo::Widget;", "from a import b", "export { c } from \"./c\""}, lines)
}

func TestResolve_UnsupportedLanguageReturnsError(t *testing.T) {
	r := New()
	_, err := r.Resolve(Params{Language: docmodel.Ecosystem("cobol"), Package: "demo", ImportLine: "use demo::X;"})
	assert.Error(t, err)
}

func TestResolve_NoImportLinesAddsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOC_PYTHON_PACKAGE_PATH", dir)
	t.Setenv("DOC_PYTHON_PACKAGE_PATH_NAME", "mypkg")

	r := New()
	resp, err := r.Resolve(Params{Language: docmodel.EcosystemPython, Package: "mypkg", CodeBlock: "x = 1\n"})
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Diagnostics)
	assert.False(t, resp.AnyResolved)
}
