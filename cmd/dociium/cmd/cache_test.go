package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()

	cacheCmd, _, err := root.Find([]string{"cache"})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, sc := range cacheCmd.Commands() {
		names[sc.Name()] = true
	}
	assert.True(t, names["stats"])
	assert.True(t, names["list"])
	assert.True(t, names["clear"])
	assert.True(t, names["cleanup"])
}

func TestCacheList_ReportsNoEntriesOnFreshCacheDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RDOCS_CACHE_DIR", filepath.Join(tmpDir, "cache"))
	t.Setenv("HOME", tmpDir)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"cache", "list"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "No cache entries.")
}

func TestCacheStats_ReportsEmptyStoreOnFreshCacheDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RDOCS_CACHE_DIR", filepath.Join(tmpDir, "cache"))
	t.Setenv("HOME", tmpDir)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"cache", "stats"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Entries:         0")
}

func TestCacheClear_ClearsWithoutPackageFlag(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RDOCS_CACHE_DIR", filepath.Join(tmpDir, "cache"))
	t.Setenv("HOME", tmpDir)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"cache", "clear"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Cleared the entire cache.")
}

func TestCacheCleanup_UsesConfiguredTTLByDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RDOCS_CACHE_DIR", filepath.Join(tmpDir, "cache"))
	t.Setenv("HOME", tmpDir)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"cache", "cleanup"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Removed 0 expired cache entries")
}
