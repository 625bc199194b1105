package importresolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
	"github.com/Aman-CERP/polydocs-mcp/internal/finder"
)

func writePythonFixture(t *testing.T, rel, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return dir
}

func TestPythonModuleToFile_DirectFileThenInitPy(t *testing.T) {
	dir := writePythonFixture(t, "widget.py", "class Widget:\n    pass\n")
	path, isPkg := pythonModuleToFile(dir, []string{"widget"})
	assert.False(t, isPkg)
	assert.Equal(t, filepath.Join(dir, "widget.py"), path)

	dir2 := writePythonFixture(t, "gadget/__init__.py", "class Gadget:\n    pass\n")
	path, isPkg = pythonModuleToFile(dir2, []string{"gadget"})
	assert.True(t, isPkg)
	assert.Equal(t, filepath.Join(dir2, "gadget", "__init__.py"), path)
}

func TestSearchPythonSymbol_FindsClassAndFunction(t *testing.T) {
	dir := writePythonFixture(t, "mod.py", "\n\nclass Widget:\n    pass\n\n\ndef build():\n    pass\n")
	file := filepath.Join(dir, "mod.py")

	line, kind, found := searchPythonSymbol(file, "Widget")
	require.True(t, found)
	assert.Equal(t, docmodel.KindClass, kind)
	assert.Equal(t, 3, line)

	line, kind, found = searchPythonSymbol(file, "build")
	require.True(t, found)
	assert.Equal(t, docmodel.KindFunction, kind)
	assert.Equal(t, 7, line)
}

func TestCutOnce_SplitsOnFirstSeparator(t *testing.T) {
	before, after, ok := cutOnce("widget.gadget import Widget, Gadget", " import ")
	require.True(t, ok)
	assert.Equal(t, "widget.gadget", before)
	assert.Equal(t, "Widget, Gadget", after)
}

func TestResolvePythonLines_ResolvesFromImportSymbols(t *testing.T) {
	dir := writePythonFixture(t, "widget.py", "\nclass Widget:\n    pass\n")
	t.Setenv("DOC_PYTHON_PACKAGE_PATH", dir)
	t.Setenv("DOC_PYTHON_PACKAGE_PATH_NAME", "mypkg")

	r := &Resolver{finder: finder.New(), cache: NewCache()}
	results, err := r.resolvePythonLines(Params{Package: "mypkg"}, []string{"from widget import Widget"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Resolved, 1)
	assert.Equal(t, docmodel.ImportResolved, results[0].Resolved[0].Status)
	assert.Equal(t, docmodel.KindClass, results[0].Resolved[0].Kind)
}

func TestResolvePythonLines_UnresolvedModuleReportsNotFound(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOC_PYTHON_PACKAGE_PATH", dir)
	t.Setenv("DOC_PYTHON_PACKAGE_PATH_NAME", "mypkg")

	r := &Resolver{finder: finder.New(), cache: NewCache()}
	results, err := r.resolvePythonLines(Params{Package: "mypkg"}, []string{"from missing import Thing"})
	require.NoError(t, err)
	require.Len(t, results[0].Resolved, 1)
	assert.Equal(t, docmodel.ImportNotFound, results[0].Resolved[0].Status)
}
