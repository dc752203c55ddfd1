// Package mcp exposes the corpus pipeline over the Model Context Protocol
// on stdio, so agent frontends can trigger runs and read their results.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/internal/embedder"
	"github.com/dshills/docontext/internal/pipeline"
	"github.com/dshills/docontext/internal/storage"
)

const (
	// ServerName is the MCP server name.
	ServerName = "docontext"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp   *server.MCPServer
	cfg   *config.Config
	store storage.Storage
	coord *pipeline.Coordinator
}

// NewServer builds storage, embedder, and coordinator from configuration
// and registers the tools.
func NewServer(cfg *config.Config) (*Server, error) {
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	s := &Server{
		mcp:   server.NewMCPServer(ServerName, ServerVersion),
		cfg:   cfg,
		store: store,
		coord: pipeline.New(cfg, store, emb),
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(processCorpusTool(), s.handleProcessCorpus)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(getReportTool(), s.handleGetReport)
}
