package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/polydocs-mcp/internal/config"
	"github.com/Aman-CERP/polydocs-mcp/internal/docengine"
	"github.com/Aman-CERP/polydocs-mcp/internal/logging"
	"github.com/Aman-CERP/polydocs-mcp/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Polydocs MCP server. Over the "stdio" transport (the
default, and the only one an MCP client like Claude Code or Cursor will
ever launch), stdout is reserved exclusively for JSON-RPC: nothing else
may be written to it, so all diagnostics go to ~/.polydocs/logs/server.log
instead of the terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, transport, addr)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve on (stdio)")
	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (ignored for stdio)")

	return cmd
}

func runServe(cmd *cobra.Command, transport, addr string) error {
	// Stdio transport requires stdout/stderr to stay silent: route all
	// logging to the rotating file logger instead of slog.Default()'s
	// stderr handler.
	cleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer cleanup()
	logger := slog.Default()

	cwd, err := workingDir()
	if err != nil {
		return err
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}
	if addr != "" {
		cfg.Server.Address = addr
	}

	engine, err := docengine.NewWithOptions(cfg.Paths.CacheDir, docengine.Options{
		WorkingDir:      cwd,
		Logger:          logger,
		Config:          cfg,
		SQLiteIndexPath: symbolIndexPath(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to start doc engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	srv, err := mcp.NewServer(engine, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return srv.Serve(cmd.Context(), cfg.Server.Transport, cfg.Server.Address)
}
