package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions for JSON marshaling tests
func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Edge Case Tests - These test scenarios that could cause silent failures
// or unexpected behavior.

// =============================================================================
// FindProjectRoot Edge Cases
// =============================================================================

// TestFindProjectRoot_NonExistentDir_ReturnsAbsolutePath tests behavior for a
// non-existent directory.
func TestFindProjectRoot_NonExistentDir_ReturnsAbsolutePath(t *testing.T) {
	nonExistent := "/nonexistent/path/that/does/not/exist"

	root, err := FindProjectRoot(nonExistent)

	// filepath.Abs succeeds even for non-existent paths, so this returns
	// the absolute path rather than erroring.
	if err != nil {
		assert.Error(t, err)
	} else {
		assert.NotEmpty(t, root)
	}
}

// TestFindProjectRoot_DeepNesting_FindsGitRoot tests that deep nesting
// correctly finds the git root.
func TestFindProjectRoot_DeepNesting_FindsGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	deepNested := filepath.Join(tmpDir, "a", "b", "c", "d", "e", "f", "g", "h")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	require.NoError(t, os.MkdirAll(deepNested, 0o755))

	root, err := FindProjectRoot(deepNested)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

// TestFindProjectRoot_RelativePath_ResolvesToAbsolute tests that relative
// paths are resolved to absolute paths.
func TestFindProjectRoot_RelativePath_ResolvesToAbsolute(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))

	oldWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	root, err := FindProjectRoot(".")

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root), "Root should be absolute path")
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, expectedRoot, actualRoot)
}

// TestFindProjectRoot_EmptyString_UsesCurrentDir tests behavior with an
// empty string.
func TestFindProjectRoot_EmptyString_UsesCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))

	oldWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	root, err := FindProjectRoot("")

	require.NoError(t, err)
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, expectedRoot, actualRoot)
}

// =============================================================================
// Config Merge Edge Cases
// =============================================================================

// TestLoad_ZeroValuesNotMerged tests that explicit zero values in a project
// config don't override defaults, since mergeWith treats the Go zero value
// as "field not set".
func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
cache:
  max_memory_entries: 0
  max_disk_size_mb: 0
fetcher:
  rate_limit_per_second: 0
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Cache.MaxMemoryEntries, "zero should not override default max_memory_entries")
	assert.Equal(t, 1000, cfg.Cache.MaxDiskSizeMB, "zero should not override default max_disk_size_mb")
	assert.Equal(t, 10, cfg.Fetcher.RateLimitPerSecond, "zero should not override default rate_limit_per_second")
}

// TestLoad_NegativeValues_Validated tests that negative values are rejected
// by validation.
func TestLoad_NegativeValues_Validated(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
cache:
  max_memory_entries: -10
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	require.Nil(t, cfg)
	assert.Contains(t, err.Error(), "max_memory_entries must be non-negative")
}

// TestLoad_NegativeRateLimit_Validated tests that a non-positive rate limit
// fails validation (zero is indistinguishable from "unset" by mergeWith, but
// a directly-constructed Config with a negative value must still be caught).
func TestLoad_NegativeRateLimit_Validated(t *testing.T) {
	cfg := NewConfig()
	cfg.Fetcher.RateLimitPerSecond = -1

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_per_second must be positive")
}

// =============================================================================
// Config File Permission Edge Cases
// =============================================================================

// TestLoad_UnreadableConfigFile_ReturnsError tests that unreadable config
// files return an error.
func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Test requires non-root user")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".polydocs.yaml")
	err := os.WriteFile(configPath, []byte("version: 1"), 0o000)
	require.NoError(t, err)
	defer func() { _ = os.Chmod(configPath, 0o644) }()

	cfg, err := Load(tmpDir)

	require.Error(t, err, "Load should fail for unreadable config file")
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read", "Error should mention read failure")
}

// =============================================================================
// DetectProjectType Edge Cases
// =============================================================================

// TestDetectProjectType_EmptyDir_ReturnsUnknown tests that empty directories
// return unknown project type.
func TestDetectProjectType_EmptyDir_ReturnsUnknown(t *testing.T) {
	tmpDir := t.TempDir()

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypeUnknown, projectType)
}

// TestDetectProjectType_NonExistentDir_ReturnsUnknown tests that
// non-existent directories return unknown (not error/panic).
func TestDetectProjectType_NonExistentDir_ReturnsUnknown(t *testing.T) {
	nonExistent := "/nonexistent/path/that/does/not/exist"

	projectType := DetectProjectType(nonExistent)

	assert.Equal(t, ProjectTypeUnknown, projectType)
}

// TestDetectProjectType_EmptyMarkerFiles_StillDetected tests that empty
// marker files are still detected: presence matters, not content.
func TestDetectProjectType_EmptyMarkerFiles_StillDetected(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte(""), 0o644)
	require.NoError(t, err)

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypeRust, projectType)
}

// TestDetectProjectType_SetupPy_ReturnsPython tests that a bare setup.py
// is recognized as a Python marker.
func TestDetectProjectType_SetupPy_ReturnsPython(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "setup.py"), []byte(""), 0o644)
	require.NoError(t, err)

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypePython, projectType)
}

// =============================================================================
// Config JSON Marshaling Edge Cases
// =============================================================================

// TestConfig_JSON_RoundTrip tests that config can be marshaled to JSON and
// back without data loss.
func TestConfig_JSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Cache.MaxMemoryEntries = 2000
	cfg.Cache.EnableCompression = false
	cfg.Scraper.UserAgent = "custom/1.0"
	cfg.Fetcher.RateLimitPerSecond = 7

	data, err := jsonMarshal(cfg)
	require.NoError(t, err)

	var parsed Config
	err = jsonUnmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, 2000, parsed.Cache.MaxMemoryEntries)
	assert.False(t, parsed.Cache.EnableCompression)
	assert.Equal(t, "custom/1.0", parsed.Scraper.UserAgent)
	assert.Equal(t, 7, parsed.Fetcher.RateLimitPerSecond)
}

// TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError tests that invalid JSON
// returns an error.
func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	invalidJSON := []byte("{invalid json")

	var cfg Config
	err := jsonUnmarshal(invalidJSON, &cfg)

	require.Error(t, err, "Unmarshal should fail for invalid JSON")
}

// =============================================================================
// Paths Config Edge Cases
// =============================================================================

// TestNewConfig_CacheDir_UsesHomeDir tests that the default cache directory
// is rooted under the user's home directory.
func TestNewConfig_CacheDir_UsesHomeDir(t *testing.T) {
	cfg := NewConfig()

	assert.NotEmpty(t, cfg.Paths.CacheDir)
	assert.Contains(t, cfg.Paths.CacheDir, "cache")
}
