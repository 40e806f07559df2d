// ABOUTME: MCP resource definitions
// ABOUTME: Provides read-only views for AI agents

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const trackersURI = "beacon://trackers"

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        trackersURI,
		Description: "All reporting trackers with their latest positions",
		URI:         trackersURI,
		MIMEType:    "application/json",
	}, s.handleTrackersResource)
}

func (s *Server) handleTrackersResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	output, err := s.listTrackers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      trackersURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		},
	}, nil
}
