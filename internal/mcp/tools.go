// ABOUTME: MCP tool definitions and handlers
// ABOUTME: Looks up tracker reports for AI agents

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harper/beacon/internal/geojson"
	"github.com/harper/beacon/internal/lookup"
	"github.com/harper/beacon/internal/models"
	"github.com/harper/beacon/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	s.registerGetTrackerTool()
	s.registerListTrackersTool()
	s.registerTrackersGeoJSONTool()
}

// GetTrackerInput defines input for get_tracker tool.
type GetTrackerInput struct {
	ID string `json:"id"`
}

// TrackerOutput defines output for tracker tools.
type TrackerOutput struct {
	ID        string     `json:"id"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timestamp time.Time  `json:"timestamp"`
	FixTime   *time.Time `json:"fix_time,omitempty"`
	Status    string     `json:"status,omitempty"`
}

func toTrackerOutput(id string, r *models.Report) TrackerOutput {
	out := TrackerOutput{
		ID:        id,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timestamp: r.Timestamp.UTC(),
		Status:    r.Status,
	}
	if !r.FixTime.IsZero() {
		ft := r.FixTime.UTC()
		out.FixTime = &ft
	}
	return out
}

func textResult(v any) *mcp.CallToolResult {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}
}

func (s *Server) registerGetTrackerTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_tracker",
		Description: "Get the latest reported position of a tracker by its 8-digit id.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Tracker id shown on the reporting device (e.g., '12345678')",
				},
			},
			"required": []string{"id"},
		},
	}, s.handleGetTracker)
}

func (s *Server) handleGetTracker(ctx context.Context, req *mcp.CallToolRequest, input GetTrackerInput) (*mcp.CallToolResult, TrackerOutput, error) {
	r, err := lookup.Get(ctx, s.store, input.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, TrackerOutput{}, fmt.Errorf("tracker '%s' is not reporting", input.ID)
	}
	if err != nil {
		return nil, TrackerOutput{}, err
	}

	output := toTrackerOutput(input.ID, r)
	return textResult(output), output, nil
}

// ListTrackersOutput defines output for list_trackers tool.
type ListTrackersOutput struct {
	Trackers []TrackerOutput `json:"trackers"`
	Count    int             `json:"count"`
}

// ListTrackersInput is empty but required for type.
type ListTrackersInput struct{}

func (s *Server) registerListTrackersTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_trackers",
		Description: "List all trackers that are currently reporting, with their latest positions.",
		InputSchema: map[string]interface{}{
			"type": "object",
		},
	}, s.handleListTrackers)
}

func (s *Server) listTrackers(ctx context.Context) (ListTrackersOutput, error) {
	trackers, err := lookup.List(ctx, s.store)
	if err != nil {
		return ListTrackersOutput{}, err
	}

	outputs := make([]TrackerOutput, 0, len(trackers))
	for _, t := range trackers {
		if t.Report == nil {
			continue
		}
		outputs = append(outputs, toTrackerOutput(t.ID, t.Report))
	}
	return ListTrackersOutput{Trackers: outputs, Count: len(outputs)}, nil
}

func (s *Server) handleListTrackers(ctx context.Context, req *mcp.CallToolRequest, input ListTrackersInput) (*mcp.CallToolResult, ListTrackersOutput, error) {
	output, err := s.listTrackers(ctx)
	if err != nil {
		return nil, ListTrackersOutput{}, fmt.Errorf("failed to list trackers: %w", err)
	}
	return textResult(output), output, nil
}

func (s *Server) registerTrackersGeoJSONTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "trackers_geojson",
		Description: "Export all reporting trackers as a GeoJSON FeatureCollection of points.",
		InputSchema: map[string]interface{}{
			"type": "object",
		},
	}, s.handleTrackersGeoJSON)
}

func (s *Server) handleTrackersGeoJSON(ctx context.Context, req *mcp.CallToolRequest, input ListTrackersInput) (*mcp.CallToolResult, geojson.FeatureCollection, error) {
	trackers, err := lookup.List(ctx, s.store)
	if err != nil {
		return nil, geojson.FeatureCollection{}, fmt.Errorf("failed to list trackers: %w", err)
	}
	fc := geojson.ToPointsFeatureCollection(trackers)
	return textResult(fc), *fc, nil
}
