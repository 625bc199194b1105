package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Default Configuration Tests
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	// Cache defaults, matching the original doc engine's CacheConfig::default()
	assert.Equal(t, 1000, cfg.Cache.MaxMemoryEntries)
	assert.Equal(t, 1000, cfg.Cache.MaxDiskSizeMB)
	assert.Equal(t, 24, cfg.Cache.CleanupIntervalHours)
	assert.Equal(t, 168, cfg.Cache.EntryTTLHours)
	assert.True(t, cfg.Cache.EnableCompression)

	// Fetcher defaults
	assert.Equal(t, 10, cfg.Fetcher.RateLimitPerSecond)
	assert.Equal(t, 10*time.Second, cfg.Fetcher.MetadataTimeout)
	assert.Equal(t, 30*time.Second, cfg.Fetcher.DownloadTimeout)

	// Scraper defaults
	assert.NotEmpty(t, cfg.Scraper.UserAgent)
	assert.Equal(t, 2, cfg.Scraper.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Scraper.RetryDelay)
	assert.Equal(t, 5*time.Second, cfg.Scraper.HeadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Scraper.FetchTimeout)

	// Server defaults
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	// Paths defaults
	assert.NotEmpty(t, cfg.Paths.CacheDir)
}

func TestConfig_VersionDefaultsToOne(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 1, cfg.Version)
}

// =============================================================================
// Configuration File Loading Tests
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 1000, cfg.Cache.MaxMemoryEntries)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
cache:
  max_memory_entries: 2000
  max_disk_size_mb: 500
fetcher:
  rate_limit_per_second: 5
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Cache.MaxMemoryEntries)
	assert.Equal(t, 500, cfg.Cache.MaxDiskSizeMB)
	assert.Equal(t, 5, cfg.Fetcher.RateLimitPerSecond)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
scraper:
  user_agent: custom-scraper/2.0
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "custom-scraper/2.0", cfg.Scraper.UserAgent)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
version: 1
scraper:
  user_agent: from-yaml/1.0
`
	ymlContent := `
version: 1
scraper:
  user_agent: from-yml/1.0
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte(yamlContent), 0o644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tmpDir, ".polydocs.yml"), []byte(ymlContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "from-yaml/1.0", cfg.Scraper.UserAgent)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	invalidContent := `
version: 1
cache:
  max_memory_entries: [invalid yaml syntax
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte(invalidContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_InvalidFieldType_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	invalidContent := `
version: 1
cache:
  max_memory_entries: "not-a-number"
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte(invalidContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidTransport_ReturnsValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
server:
  transport: carrier-pigeon
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "transport")
}

// =============================================================================
// Project Type Detection Tests
// =============================================================================

func TestDetectProjectType_CargoToml_ReturnsRust(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte("[package]"), 0o644)
	require.NoError(t, err)

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypeRust, projectType)
}

func TestDetectProjectType_PackageJson_ReturnsNode(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte("{}"), 0o644)
	require.NoError(t, err)

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypeNode, projectType)
}

func TestDetectProjectType_PyprojectToml_ReturnsPython(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "pyproject.toml"), []byte("[project]"), 0o644)
	require.NoError(t, err)

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypePython, projectType)
}

func TestDetectProjectType_RequirementsTxt_ReturnsPython(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "requirements.txt"), []byte("requests==2.0"), 0o644)
	require.NoError(t, err)

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypePython, projectType)
}

func TestDetectProjectType_NoMarkerFiles_ReturnsUnknown(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "random.txt"), []byte("hello"), 0o644)
	require.NoError(t, err)

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypeUnknown, projectType)
}

func TestDetectProjectType_Priority_RustOverNode(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte("[package]"), 0o644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte("{}"), 0o644)
	require.NoError(t, err)

	projectType := DetectProjectType(tmpDir)

	assert.Equal(t, ProjectTypeRust, projectType)
}

// =============================================================================
// Project Root Discovery Tests
// =============================================================================

func TestFindProjectRoot_GitDirectory_ReturnsGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	nestedDir := filepath.Join(tmpDir, "src", "internal")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))

	root, err := FindProjectRoot(nestedDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_ConfigFile_ReturnsConfigLocation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "src", "internal")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte("version: 1"), 0o644)
	require.NoError(t, err)

	root, err := FindProjectRoot(nestedDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_NoMarkers_ReturnsCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()

	root, err := FindProjectRoot(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

// =============================================================================
// Environment Variable Override Tests
// =============================================================================

func TestLoad_EnvVarOverridesCacheDir(t *testing.T) {
	tmpDir := t.TempDir()
	customCacheDir := filepath.Join(tmpDir, "custom-cache")
	t.Setenv("RDOCS_CACHE_DIR", customCacheDir)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, customCacheDir, cfg.Paths.CacheDir)
}

func TestLoad_EnvVarOverridesLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RDOCS_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_EnvVarOverridesTransport(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RDOCS_TRANSPORT", "sse")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "sse", cfg.Server.Transport)
}

func TestLoad_EnvVarOverridesRateLimit(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
fetcher:
  rate_limit_per_second: 20
`
	err := os.WriteFile(filepath.Join(tmpDir, ".polydocs.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)
	t.Setenv("RDOCS_FETCHER_RATE_LIMIT", "3")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Fetcher.RateLimitPerSecond)
}

func TestLoad_EnvVarOverridesUserAgent(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RDOCS_SCRAPER_USER_AGENT", "env-agent/5.0")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "env-agent/5.0", cfg.Scraper.UserAgent)
}

func TestLoad_EnvVarEmptyString_DoesNotOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RDOCS_SCRAPER_USER_AGENT", "")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Scraper.UserAgent, cfg.Scraper.UserAgent)
}

// =============================================================================
// User/Global Configuration Tests
// =============================================================================

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := GetUserConfigPath()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	expected := filepath.Join(home, ".config", "polydocs", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path := GetUserConfigPath()

	expected := filepath.Join(customConfig, "polydocs", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigDir_ReturnsParentOfConfigPath(t *testing.T) {
	dir := GetUserConfigDir()
	path := GetUserConfigPath()

	assert.Equal(t, filepath.Dir(path), dir)
}

func TestUserConfigExists_ReturnsFalseWhenMissing(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", emptyDir)

	assert.False(t, UserConfigExists())
}

func TestUserConfigExists_ReturnsTrueWhenPresent(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	polydocsDir := filepath.Join(configDir, "polydocs")
	require.NoError(t, os.MkdirAll(polydocsDir, 0o755))
	configPath := filepath.Join(polydocsDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1"), 0o644))

	assert.True(t, UserConfigExists())
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	polydocsDir := filepath.Join(configDir, "polydocs")
	require.NoError(t, os.MkdirAll(polydocsDir, 0o755))
	userConfig := `
version: 1
scraper:
  user_agent: user-agent/1.0
`
	require.NoError(t, os.WriteFile(filepath.Join(polydocsDir, "config.yaml"), []byte(userConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "user-agent/1.0", cfg.Scraper.UserAgent)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	polydocsDir := filepath.Join(configDir, "polydocs")
	require.NoError(t, os.MkdirAll(polydocsDir, 0o755))
	userConfig := `
version: 1
scraper:
  user_agent: user-agent/1.0
  max_retries: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(polydocsDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := `
version: 1
scraper:
  user_agent: project-agent/1.0
`
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".polydocs.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "project-agent/1.0", cfg.Scraper.UserAgent)
	// Project config didn't set max_retries, so the user config's value survives.
	assert.Equal(t, 5, cfg.Scraper.MaxRetries)
}

func TestLoad_EnvVarOverridesUserAndProjectConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("RDOCS_SCRAPER_USER_AGENT", "env-agent/1.0")

	polydocsDir := filepath.Join(configDir, "polydocs")
	require.NoError(t, os.MkdirAll(polydocsDir, 0o755))
	userConfig := `
version: 1
scraper:
  user_agent: user-agent/1.0
`
	require.NoError(t, os.WriteFile(filepath.Join(polydocsDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := `
version: 1
scraper:
  user_agent: project-agent/1.0
`
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".polydocs.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "env-agent/1.0", cfg.Scraper.UserAgent)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	polydocsDir := filepath.Join(configDir, "polydocs")
	require.NoError(t, os.MkdirAll(polydocsDir, 0o755))
	invalidConfig := `
version: 1
scraper:
  user_agent: [invalid yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(polydocsDir, "config.yaml"), []byte(invalidConfig), 0o644))

	cfg, err := Load(projectDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}
