package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/polydocs-mcp/internal/config"
	"github.com/Aman-CERP/polydocs-mcp/internal/docengine"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local documentation cache",
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCacheListCmd())
	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCacheCleanupCmd())

	return cmd
}

func newCacheListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List on-disk cache entries by filename, size, and access time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, closeEngine, err := openEngineReadOnly()
			if err != nil {
				return err
			}
			defer closeEngine()

			entries, err := engine.ListCacheEntries()
			if err != nil {
				return fmt.Errorf("failed to list cache entries: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No cache entries.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s\t%d bytes\tcreated %s\tlast accessed %s\n",
					e.Filename, e.SizeBytes,
					time.Unix(e.CreatedAt, 0).Format(time.RFC3339),
					time.Unix(e.LastAccessed, 0).Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as JSON")
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache hit rate, entry count, and disk usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cfg, closeEngine, err := openEngineReadOnly()
			if err != nil {
				return err
			}
			defer closeEngine()

			stats, err := engine.GetCacheStats()
			if err != nil {
				return fmt.Errorf("failed to read cache stats: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache directory: %s\n", cfg.Paths.CacheDir)
			fmt.Fprintf(out, "Entries:         %d\n", stats.TotalEntries)
			fmt.Fprintf(out, "Disk usage:      %d bytes\n", stats.DiskUsageBytes)
			fmt.Fprintf(out, "Hit rate:        %.1f%% (%d hits, %d misses)\n", stats.HitRate*100, stats.Hits, stats.Misses)
			fmt.Fprintf(out, "Evictions:       %d\n", stats.Evictions)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var crateName string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached documentation",
		Long:  `Clear the entire cache, or only the entries for one package with --package.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, closeEngine, err := openEngineReadOnly()
			if err != nil {
				return err
			}
			defer closeEngine()

			if crateName == "" {
				if err := engine.ClearCache(); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared the entire cache.")
				return nil
			}

			removed, err := engine.ClearCacheForPackage(crateName)
			if err != nil {
				return fmt.Errorf("failed to clear cache for %s: %w", crateName, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries for %s.\n", removed, crateName)
			return nil
		},
	}

	cmd.Flags().StringVar(&crateName, "package", "", "Only clear cache entries for this package")
	return cmd
}

func newCacheCleanupCmd() *cobra.Command {
	var maxAgeHours int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove cache entries older than the configured (or given) TTL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cfg, closeEngine, err := openEngineReadOnly()
			if err != nil {
				return err
			}
			defer closeEngine()

			maxAge := time.Duration(cfg.Cache.EntryTTLHours) * time.Hour
			if maxAgeHours > 0 {
				maxAge = time.Duration(maxAgeHours) * time.Hour
			}

			removed, err := engine.CleanupCache(maxAge)
			if err != nil {
				return fmt.Errorf("failed to clean up cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cache entries (older than %s).\n", removed, maxAge)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeHours, "max-age-hours", 0, "Override the configured cache TTL, in hours")
	return cmd
}

// openEngineReadOnly constructs an Engine against the process's cache
// directory for commands that only inspect or clear cache state; it talks
// to crates.io/docs.rs with the configured clients, since cache stats/clear
// don't need to fetch anything themselves.
func openEngineReadOnly() (*docengine.Engine, *config.Config, func(), error) {
	cwd, err := workingDir()
	if err != nil {
		return nil, nil, nil, err
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	engine, err := docengine.NewWithOptions(cfg.Paths.CacheDir, docengine.Options{
		WorkingDir:      cwd,
		Config:          cfg,
		SQLiteIndexPath: symbolIndexPath(cfg),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open doc engine: %w", err)
	}

	return engine, cfg, func() { _ = engine.Close() }, nil
}

// symbolIndexPath is where the engine persists its symbol index so
// searches survive process restarts without re-fetching every crate.
func symbolIndexPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.CacheDir, "symbols.db")
}
