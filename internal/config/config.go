package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectType represents the ecosystem of a resolved package/context path.
type ProjectType string

const (
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeRust    ProjectType = "rust"
	ProjectTypeUnknown ProjectType = "unknown"
)

// Config is the complete polydocs-mcp server configuration: cache sizing,
// crates.io/docs.rs network behavior, the MCP transport, and the paths the
// server reads from and writes to.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Fetcher FetcherConfig `yaml:"fetcher" json:"fetcher"`
	Scraper ScraperConfig `yaml:"scraper" json:"scraper"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// PathsConfig configures where the server keeps its on-disk cache. CacheDir
// is also settable via the RDOCS_CACHE_DIR environment variable, which
// takes precedence over both defaults and file configuration.
type PathsConfig struct {
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// CacheConfig sizes the tiered cache internal/cachestore implements: a
// bounded in-memory LRU in front of a gzip-compressed, disk-persisted tier.
// Defaults mirror the original doc_engine::types::CacheConfig.
type CacheConfig struct {
	// MaxMemoryEntries bounds the in-memory LRU tier.
	MaxMemoryEntries int `yaml:"max_memory_entries" json:"max_memory_entries"`
	// MaxDiskSizeMB is the soft cap on disk tier size before cleanup evicts
	// the least-recently-accessed entries.
	MaxDiskSizeMB int `yaml:"max_disk_size_mb" json:"max_disk_size_mb"`
	// CleanupIntervalHours is how often a background sweep checks the disk
	// tier against MaxDiskSizeMB and EntryTTLHours.
	CleanupIntervalHours int `yaml:"cleanup_interval_hours" json:"cleanup_interval_hours"`
	// EntryTTLHours is how long an entry survives without being re-fetched
	// before cleanup considers it stale.
	EntryTTLHours int `yaml:"entry_ttl_hours" json:"entry_ttl_hours"`
	// EnableCompression is loaded and merged, but the cache store does not
	// read it: disk tier entries are always gzip-compressed.
	EnableCompression bool `yaml:"enable_compression" json:"enable_compression"`
}

// FetcherConfig tunes internal/fetcher's crates.io client.
type FetcherConfig struct {
	// RateLimitPerSecond is the crates.io courtesy rate limit.
	RateLimitPerSecond int `yaml:"rate_limit_per_second" json:"rate_limit_per_second"`
	// MetadataTimeout bounds a single crate-info/search/dependency request.
	MetadataTimeout time.Duration `yaml:"metadata_timeout" json:"metadata_timeout"`
	// DownloadTimeout bounds the underlying HTTP client's overall timeout.
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// ScraperConfig tunes internal/scrape's docs.rs client.
type ScraperConfig struct {
	// UserAgent identifies the scraper to docs.rs.
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// MaxRetries is how many times a failed fetch (other than a definitive
	// 404) is retried before giving up.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// RetryDelay is the base backoff between retries; the wait before
	// retry n is n times this value.
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// HeadTimeout bounds the HEAD probes discoverItemURL uses to find the
	// right docs.rs page.
	HeadTimeout time.Duration `yaml:"head_timeout" json:"head_timeout"`
	// FetchTimeout bounds a single GET of an HTML page or search-index.js.
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
}

// ServerConfig configures the MCP server's transport.
type ServerConfig struct {
	// Transport is "stdio" or "sse".
	Transport string `yaml:"transport" json:"transport"`
	// Address is the bind address for the "sse" transport.
	Address string `yaml:"address" json:"address"`
	// Port is the listen port for the "sse" transport.
	Port int `yaml:"port" json:"port"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with the documentation engine's
// default cache sizing, network timeouts, and stdio transport.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			CacheDir: defaultCacheDir(),
		},
		Cache: CacheConfig{
			MaxMemoryEntries:     1000,
			MaxDiskSizeMB:        1000, // 1GB
			CleanupIntervalHours: 24,
			EntryTTLHours:        168, // 1 week
			EnableCompression:    true,
		},
		Fetcher: FetcherConfig{
			RateLimitPerSecond: 10,
			MetadataTimeout:    10 * time.Second,
			DownloadTimeout:    30 * time.Second,
		},
		Scraper: ScraperConfig{
			UserAgent:    "polydocs-mcp-scraper/1.0",
			MaxRetries:   2,
			RetryDelay:   500 * time.Millisecond,
			HeadTimeout:  5 * time.Second,
			FetchTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
		},
	}
}

// defaultCacheDir returns ~/.polydocs/cache, falling back to a temp
// directory when the home directory can't be resolved.
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".polydocs", "cache")
	}
	return filepath.Join(home, ".polydocs", "cache")
}

// GetUserConfigPath returns the path to the user/global configuration
// file, following the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/polydocs/config.yaml, if XDG_CONFIG_HOME is set
//   - ~/.config/polydocs/config.yaml otherwise
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "polydocs", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "polydocs", "config.yaml")
	}
	return filepath.Join(home, ".config", "polydocs", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if present.
// A missing file is not an error: it returns a nil config.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load builds a Config for dir, applying configuration in order of
// increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/polydocs/config.yaml)
//  3. Project config (.polydocs.yaml in dir)
//  4. Environment variables (RDOCS_*), highest precedence
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .polydocs.yaml or
// .polydocs.yml in dir. Neither existing is not an error.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".polydocs.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".polydocs.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.CacheDir != "" {
		c.Paths.CacheDir = other.Paths.CacheDir
	}

	if other.Cache.MaxMemoryEntries != 0 {
		c.Cache.MaxMemoryEntries = other.Cache.MaxMemoryEntries
	}
	if other.Cache.MaxDiskSizeMB != 0 {
		c.Cache.MaxDiskSizeMB = other.Cache.MaxDiskSizeMB
	}
	if other.Cache.CleanupIntervalHours != 0 {
		c.Cache.CleanupIntervalHours = other.Cache.CleanupIntervalHours
	}
	if other.Cache.EntryTTLHours != 0 {
		c.Cache.EntryTTLHours = other.Cache.EntryTTLHours
	}
	// EnableCompression can be explicitly set to false, so merge it
	// whenever any other cache field was set in the overriding config.
	if other.Cache != (CacheConfig{}) {
		c.Cache.EnableCompression = other.Cache.EnableCompression
	}

	if other.Fetcher.RateLimitPerSecond != 0 {
		c.Fetcher.RateLimitPerSecond = other.Fetcher.RateLimitPerSecond
	}
	if other.Fetcher.MetadataTimeout != 0 {
		c.Fetcher.MetadataTimeout = other.Fetcher.MetadataTimeout
	}
	if other.Fetcher.DownloadTimeout != 0 {
		c.Fetcher.DownloadTimeout = other.Fetcher.DownloadTimeout
	}

	if other.Scraper.UserAgent != "" {
		c.Scraper.UserAgent = other.Scraper.UserAgent
	}
	if other.Scraper.MaxRetries != 0 {
		c.Scraper.MaxRetries = other.Scraper.MaxRetries
	}
	if other.Scraper.RetryDelay != 0 {
		c.Scraper.RetryDelay = other.Scraper.RetryDelay
	}
	if other.Scraper.HeadTimeout != 0 {
		c.Scraper.HeadTimeout = other.Scraper.HeadTimeout
	}
	if other.Scraper.FetchTimeout != 0 {
		c.Scraper.FetchTimeout = other.Scraper.FetchTimeout
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Address != "" {
		c.Server.Address = other.Server.Address
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies RDOCS_* environment variable overrides, the
// highest-precedence configuration layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RDOCS_CACHE_DIR"); v != "" {
		c.Paths.CacheDir = v
	}
	if v := os.Getenv("RDOCS_CACHE_MAX_MEMORY_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxMemoryEntries = n
		}
	}
	if v := os.Getenv("RDOCS_CACHE_MAX_DISK_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxDiskSizeMB = n
		}
	}
	if v := os.Getenv("RDOCS_CACHE_ENTRY_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.EntryTTLHours = n
		}
	}
	if v := os.Getenv("RDOCS_CACHE_ENABLE_COMPRESSION"); v != "" {
		c.Cache.EnableCompression = strings.EqualFold(v, "true") || v == "1"
	}

	if v := os.Getenv("RDOCS_FETCHER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Fetcher.RateLimitPerSecond = n
		}
	}

	if v := os.Getenv("RDOCS_SCRAPER_USER_AGENT"); v != "" {
		c.Scraper.UserAgent = v
	}

	if v := os.Getenv("RDOCS_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("RDOCS_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("RDOCS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("RDOCS_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// DetectProjectType inspects dir's context files to guess which ecosystem
// a bare context_path argument belongs to, the way internal/finder's
// package-path resolution needs to know whether to look for a
// package.json, a pyproject.toml, or a Cargo.toml.
func DetectProjectType(dir string) ProjectType {
	if fileExists(filepath.Join(dir, "Cargo.toml")) {
		return ProjectTypeRust
	}
	if fileExists(filepath.Join(dir, "package.json")) {
		return ProjectTypeNode
	}
	if fileExists(filepath.Join(dir, "pyproject.toml")) ||
		fileExists(filepath.Join(dir, "requirements.txt")) ||
		fileExists(filepath.Join(dir, "setup.py")) {
		return ProjectTypePython
	}
	return ProjectTypeUnknown
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// .polydocs.yaml/.yml file, returning startDir itself if neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".polydocs.yaml")) ||
			fileExists(filepath.Join(currentDir, ".polydocs.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// String returns the string form of a ProjectType.
func (p ProjectType) String() string {
	return string(p)
}

// IsKnown reports whether the project type was identified.
func (p ProjectType) IsKnown() bool {
	return p != ProjectTypeUnknown
}

// Validate checks the configuration for internally-inconsistent or
// out-of-range values.
func (c *Config) Validate() error {
	if c.Cache.MaxMemoryEntries < 0 {
		return fmt.Errorf("cache.max_memory_entries must be non-negative, got %d", c.Cache.MaxMemoryEntries)
	}
	if c.Cache.MaxDiskSizeMB < 0 {
		return fmt.Errorf("cache.max_disk_size_mb must be non-negative, got %d", c.Cache.MaxDiskSizeMB)
	}
	if c.Cache.EntryTTLHours < 0 {
		return fmt.Errorf("cache.entry_ttl_hours must be non-negative, got %d", c.Cache.EntryTTLHours)
	}

	if c.Fetcher.RateLimitPerSecond <= 0 {
		return fmt.Errorf("fetcher.rate_limit_per_second must be positive, got %d", c.Fetcher.RateLimitPerSecond)
	}
	if c.Fetcher.MetadataTimeout <= 0 {
		return fmt.Errorf("fetcher.metadata_timeout must be positive, got %s", c.Fetcher.MetadataTimeout)
	}
	if c.Fetcher.DownloadTimeout <= 0 {
		return fmt.Errorf("fetcher.download_timeout must be positive, got %s", c.Fetcher.DownloadTimeout)
	}

	if c.Scraper.MaxRetries < 0 {
		return fmt.Errorf("scraper.max_retries must be non-negative, got %d", c.Scraper.MaxRetries)
	}
	if c.Scraper.HeadTimeout <= 0 {
		return fmt.Errorf("scraper.head_timeout must be positive, got %s", c.Scraper.HeadTimeout)
	}
	if c.Scraper.FetchTimeout <= 0 {
		return fmt.Errorf("scraper.fetch_timeout must be positive, got %s", c.Scraper.FetchTimeout)
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file, returning a nil config
// and nil error if it doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults fills in zero-valued fields with current defaults, for
// migrating a config file written by an older version of the server that
// predates a field. It returns the dotted field names that were added.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Cache.MaxMemoryEntries == 0 {
		c.Cache.MaxMemoryEntries = defaults.Cache.MaxMemoryEntries
		added = append(added, "cache.max_memory_entries")
	}
	if c.Cache.MaxDiskSizeMB == 0 {
		c.Cache.MaxDiskSizeMB = defaults.Cache.MaxDiskSizeMB
		added = append(added, "cache.max_disk_size_mb")
	}
	if c.Cache.CleanupIntervalHours == 0 {
		c.Cache.CleanupIntervalHours = defaults.Cache.CleanupIntervalHours
		added = append(added, "cache.cleanup_interval_hours")
	}
	if c.Cache.EntryTTLHours == 0 {
		c.Cache.EntryTTLHours = defaults.Cache.EntryTTLHours
		added = append(added, "cache.entry_ttl_hours")
	}

	if c.Fetcher.RateLimitPerSecond == 0 {
		c.Fetcher.RateLimitPerSecond = defaults.Fetcher.RateLimitPerSecond
		added = append(added, "fetcher.rate_limit_per_second")
	}
	if c.Fetcher.MetadataTimeout == 0 {
		c.Fetcher.MetadataTimeout = defaults.Fetcher.MetadataTimeout
		added = append(added, "fetcher.metadata_timeout")
	}
	if c.Fetcher.DownloadTimeout == 0 {
		c.Fetcher.DownloadTimeout = defaults.Fetcher.DownloadTimeout
		added = append(added, "fetcher.download_timeout")
	}

	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = defaults.Scraper.UserAgent
		added = append(added, "scraper.user_agent")
	}
	if c.Scraper.HeadTimeout == 0 {
		c.Scraper.HeadTimeout = defaults.Scraper.HeadTimeout
		added = append(added, "scraper.head_timeout")
	}
	if c.Scraper.FetchTimeout == 0 {
		c.Scraper.FetchTimeout = defaults.Scraper.FetchTimeout
		added = append(added, "scraper.fetch_timeout")
	}

	return added
}
