// Package mcp implements the Model Context Protocol (MCP) server for Polydocs.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/polydocs-mcp/internal/config"
	"github.com/Aman-CERP/polydocs-mcp/internal/docengine"
	"github.com/Aman-CERP/polydocs-mcp/pkg/version"
)

// Server is the MCP server for Polydocs. It bridges AI clients (Claude Code,
// Cursor, and anything else speaking MCP) with the cross-ecosystem doc
// engine: crate/package search, item docs, trait impls, symbol search,
// source extraction and import resolution.
type Server struct {
	mcp    *mcp.Server
	engine *docengine.Engine
	config *config.Config
	logger *slog.Logger
}

// NewServer wires a Server around an already-constructed Engine.
func NewServer(engine *docengine.Engine, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("doc engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "polydocs",
		Version: version.Version,
	}, nil)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP SDK server, for transports or tests
// that need to drive it directly.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server until ctx is canceled, using the configured
// transport ("stdio" is the only one implemented so far).
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("starting MCP server", "transport", transport, "addr", addr)

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", "error", err)
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	case "sse":
		return fmt.Errorf("sse transport not yet implemented")
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases the underlying doc engine's resources (cache cleanup
// goroutine, filesystem watcher, search index, symbol index).
func (s *Server) Close() error {
	return s.engine.Close()
}
