// Package cmd provides the CLI commands for Polydocs.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/polydocs-mcp/internal/logging"
	"github.com/Aman-CERP/polydocs-mcp/pkg/version"
)

// Debug logging flag.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for polydocs CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "polydocs",
		Short: "Local-first MCP server for multi-ecosystem package documentation",
		Long: `Polydocs is a Model Context Protocol server that gives AI coding
assistants structured access to Rust, Python, and Node package
documentation: crate/package metadata, item docs, trait implementations,
symbol search, and source snippets, backed by a local two-tier cache.

Run 'polydocs serve' to start the MCP server over stdio.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("polydocs version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.polydocs/logs/")
	cmd.PersistentPreRunE = startDebugLogging
	cmd.PersistentPostRunE = stopDebugLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startDebugLogging enables file-based debug logging when --debug is set.
// It never touches stdout/stderr: the MCP stdio transport (see serve.go)
// owns stdout exclusively for JSON-RPC, so debug diagnostics go only to
// ~/.polydocs/logs/server.log.
func startDebugLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	cfg := logging.DebugConfig()
	cfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopDebugLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// workingDir returns the current directory, used as the default context
// for import resolution and project-local config discovery.
func workingDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return wd, nil
}
