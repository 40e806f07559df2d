// ABOUTME: MCP server initialization and configuration
// ABOUTME: Sets up a read-only tracker viewer with tools and resources for AI agents

package mcp

import (
	"context"
	"fmt"

	"github.com/harper/beacon/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with a document store.
type Server struct {
	mcp   *mcp.Server
	store storage.DocumentStore
}

// NewServer creates MCP server with all capabilities.
func NewServer(store storage.DocumentStore, version string) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "beacon",
			Version: version,
		},
		nil,
	)

	s := &Server{
		mcp:   mcpServer,
		store: store,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
