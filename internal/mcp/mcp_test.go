// ABOUTME: Tests for MCP server, tools, and resources
// ABOUTME: Verifies tracker lookups against the document store interface

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harper/beacon/internal/models"
	"github.com/harper/beacon/internal/storage"
)

// failingStore fails list and get calls.
type failingStore struct {
	*storage.MemoryStore
	err error
}

func (f *failingStore) Get(ctx context.Context, path string) (storage.Document, error) {
	return nil, f.err
}

func (f *failingStore) List(ctx context.Context, collection string) ([]string, error) {
	return nil, f.err
}

func seedTracker(t *testing.T, store storage.DocumentStore, id string, lat, lng float64) {
	t.Helper()
	fix := models.Fix{Latitude: lat, Longitude: lng, Time: time.UnixMilli(1700000000000)}
	r := models.NewReport(fix, time.UnixMilli(1700000001000), "run-1")
	if err := store.Merge(context.Background(), storage.TrackerPath(id), r.Fields()); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}
}

func TestNewServer(t *testing.T) {
	server, err := NewServer(storage.NewMemoryStore(), "test")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if server.store == nil {
		t.Error("expected non-nil store")
	}
	if server.mcp == nil {
		t.Error("expected non-nil mcp server")
	}
}

func TestNewServer_NilStore(t *testing.T) {
	if _, err := NewServer(nil, "test"); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestHandleGetTracker(t *testing.T) {
	store := storage.NewMemoryStore()
	seedTracker(t, store, "12345678", 41.8781, -87.6298)
	server, _ := NewServer(store, "test")

	result, output, err := server.handleGetTracker(context.Background(), nil, GetTrackerInput{ID: "12345678"})
	if err != nil {
		t.Fatalf("handleGetTracker failed: %v", err)
	}
	if result == nil || len(result.Content) != 1 {
		t.Fatal("expected one content block")
	}
	if output.ID != "12345678" {
		t.Errorf("expected id 12345678, got %q", output.ID)
	}
	if output.Latitude != 41.8781 || output.Longitude != -87.6298 {
		t.Errorf("unexpected coordinates: %f, %f", output.Latitude, output.Longitude)
	}
	if output.Timestamp.UnixMilli() != 1700000001000 {
		t.Errorf("unexpected timestamp: %v", output.Timestamp)
	}
	if output.FixTime == nil || output.FixTime.UnixMilli() != 1700000000000 {
		t.Errorf("unexpected fix time: %v", output.FixTime)
	}
	if output.Status != models.StatusOnline {
		t.Errorf("expected status online, got %q", output.Status)
	}
}

func TestHandleGetTracker_NotReporting(t *testing.T) {
	server, _ := NewServer(storage.NewMemoryStore(), "test")

	_, _, err := server.handleGetTracker(context.Background(), nil, GetTrackerInput{ID: "12345678"})
	if err == nil || !strings.Contains(err.Error(), "not reporting") {
		t.Errorf("expected not reporting error, got %v", err)
	}
}

func TestHandleGetTracker_InvalidID(t *testing.T) {
	server, _ := NewServer(storage.NewMemoryStore(), "test")

	_, _, err := server.handleGetTracker(context.Background(), nil, GetTrackerInput{ID: "abc"})
	if err == nil || !strings.Contains(err.Error(), "8 digits") {
		t.Errorf("expected invalid id error, got %v", err)
	}
}

func TestHandleGetTracker_StoreError(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), err: errors.New("offline")}
	server, _ := NewServer(store, "test")

	_, _, err := server.handleGetTracker(context.Background(), nil, GetTrackerInput{ID: "12345678"})
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestHandleListTrackers(t *testing.T) {
	store := storage.NewMemoryStore()
	seedTracker(t, store, "22222222", 2, 2)
	seedTracker(t, store, "11111111", 1, 1)
	if err := store.Merge(context.Background(), "trackers/33333333", storage.Document{"name": "no report"}); err != nil {
		t.Fatal(err)
	}
	server, _ := NewServer(store, "test")

	_, output, err := server.handleListTrackers(context.Background(), nil, ListTrackersInput{})
	if err != nil {
		t.Fatalf("handleListTrackers failed: %v", err)
	}
	if output.Count != 2 {
		t.Fatalf("expected 2 trackers, got %d", output.Count)
	}
	if output.Trackers[0].ID != "11111111" || output.Trackers[1].ID != "22222222" {
		t.Errorf("unexpected order: %+v", output.Trackers)
	}
}

func TestHandleListTrackers_Empty(t *testing.T) {
	server, _ := NewServer(storage.NewMemoryStore(), "test")

	_, output, err := server.handleListTrackers(context.Background(), nil, ListTrackersInput{})
	if err != nil {
		t.Fatalf("handleListTrackers failed: %v", err)
	}
	if output.Count != 0 || output.Trackers == nil {
		t.Errorf("expected empty non-nil list, got %+v", output)
	}
}

func TestHandleListTrackers_Error(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), err: errors.New("offline")}
	server, _ := NewServer(store, "test")

	if _, _, err := server.handleListTrackers(context.Background(), nil, ListTrackersInput{}); err == nil {
		t.Error("expected error when list fails")
	}
}

func TestHandleTrackersGeoJSON(t *testing.T) {
	store := storage.NewMemoryStore()
	seedTracker(t, store, "12345678", 41.8781, -87.6298)
	server, _ := NewServer(store, "test")

	_, fc, err := server.handleTrackersGeoJSON(context.Background(), nil, ListTrackersInput{})
	if err != nil {
		t.Fatalf("handleTrackersGeoJSON failed: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("unexpected collection: %+v", fc)
	}
	if fc.Features[0].Geometry.Coordinates[0] != -87.6298 {
		t.Errorf("expected [lng, lat] order, got %v", fc.Features[0].Geometry.Coordinates)
	}
}

func TestHandleTrackersResource(t *testing.T) {
	store := storage.NewMemoryStore()
	seedTracker(t, store, "12345678", 41.0, -87.0)
	server, _ := NewServer(store, "test")

	result, err := server.handleTrackersResource(context.Background(), nil)
	if err != nil {
		t.Fatalf("handleTrackersResource failed: %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(result.Contents))
	}
	if result.Contents[0].URI != "beacon://trackers" {
		t.Errorf("expected URI 'beacon://trackers', got %q", result.Contents[0].URI)
	}
	if result.Contents[0].MIMEType != "application/json" {
		t.Errorf("expected MIME type 'application/json', got %q", result.Contents[0].MIMEType)
	}

	var parsed ListTrackersOutput
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &parsed); err != nil {
		t.Fatalf("resource is not valid JSON: %v", err)
	}
	if parsed.Count != 1 || parsed.Trackers[0].ID != "12345678" {
		t.Errorf("unexpected resource body: %+v", parsed)
	}
}

func TestHandleTrackersResource_Error(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), err: errors.New("offline")}
	server, _ := NewServer(store, "test")

	if _, err := server.handleTrackersResource(context.Background(), nil); err == nil {
		t.Error("expected error when list fails")
	}
}
