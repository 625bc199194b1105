package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/polydocs-mcp/internal/cliui"
	"github.com/Aman-CERP/polydocs-mcp/internal/config"
	"github.com/Aman-CERP/polydocs-mcp/internal/docengine"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Pre-fetch package documentation into the local cache",
	}
	cmd.AddCommand(newFetchWarmCmd())
	return cmd
}

func newFetchWarmCmd() *cobra.Command {
	var version string
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "warm <crate>",
		Short: "Fetch and cache every item doc for a crate",
		Long: `Warm resolves a crate's latest (or given) version, fetches its
docs.rs search index, and fetches + caches the documentation for every
item in it, so later MCP requests for that crate are served entirely from
the local cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetchWarm(cmd, args[0], version, noTUI)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Crate version to warm (default: latest)")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Force plain line-oriented output")

	return cmd
}

func runFetchWarm(cmd *cobra.Command, crateName, version string, noTUI bool) error {
	cwd, err := workingDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, err := docengine.NewWithOptions(cfg.Paths.CacheDir, docengine.Options{
		WorkingDir:      cwd,
		Config:          cfg,
		SQLiteIndexPath: symbolIndexPath(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to open doc engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	renderer := cliui.NewRenderer(cliui.Config{
		Output:     cmd.OutOrStdout(),
		ForcePlain: noTUI,
		Package:    crateName,
	})

	ctx := cmd.Context()
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	start := time.Now()
	renderer.UpdateProgress(cliui.ProgressEvent{Stage: cliui.StageResolving, Message: "resolving version and search index"})

	resolvedVersion, paths, err := engine.ListItemPaths(ctx, crateName, version)
	if err != nil {
		_ = renderer.Stop()
		return fmt.Errorf("failed to resolve %s: %w", crateName, err)
	}

	var errCount, warnCount int
	for i, path := range paths {
		renderer.UpdateProgress(cliui.ProgressEvent{
			Stage:       cliui.StageFetching,
			Current:     i + 1,
			Total:       len(paths),
			CurrentItem: path,
		})

		if _, err := engine.GetItemDoc(ctx, crateName, path, resolvedVersion); err != nil {
			warnCount++
			renderer.AddError(cliui.ErrorEvent{Item: path, Err: err, IsWarn: true})
		}
	}

	renderer.Complete(cliui.CompletionStats{
		Package:  crateName,
		Version:  resolvedVersion,
		Items:    len(paths),
		Errors:   errCount,
		Warnings: warnCount,
		Duration: time.Since(start),
	})

	if noTUI {
		return nil
	}
	// Give the TUI a moment to render the completion frame before Stop
	// tears the program down, mirroring the teacher's indexing command.
	time.Sleep(150 * time.Millisecond)
	return nil
}
