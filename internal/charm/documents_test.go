// ABOUTME: Tests for tracker document operations on Charm KV
// ABOUTME: Verifies merge semantics, deletes, not-found mapping, and pulls before reads

package charm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/harper/beacon/internal/storage"
)

func testClient(t *testing.T, name string) *Client {
	t.Helper()
	t.Setenv("CHARM_DATA_DIR", t.TempDir())

	client, err := NewTestClient(name)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGet_MissingDocument(t *testing.T) {
	client := testClient(t, "test-missing")

	_, err := client.Get(context.Background(), storage.TrackerPath("12345678"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMerge_PreservesOtherFields(t *testing.T) {
	ctx := context.Background()
	client := testClient(t, "test-merge")
	path := storage.TrackerPath("12345678")

	if err := client.Merge(ctx, path, storage.Document{"lat": 1.0, "lng": 2.0, "label": "car"}); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	if err := client.Merge(ctx, path, storage.Document{"lat": 3.0, "lng": 4.0}); err != nil {
		t.Fatalf("second merge failed: %v", err)
	}

	doc, err := client.Get(ctx, path)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc["lat"] != 3.0 || doc["lng"] != 4.0 {
		t.Errorf("expected updated coordinates, got %v", doc)
	}
	if doc["label"] != "car" {
		t.Errorf("expected label to survive merge, got %v", doc["label"])
	}
}

func TestDelete_RemovesDocument(t *testing.T) {
	ctx := context.Background()
	client := testClient(t, "test-delete")
	path := storage.TrackerPath("12345678")

	if err := client.Merge(ctx, path, storage.Document{"lat": 1.0}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if err := client.Delete(ctx, path); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := client.Get(ctx, path); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestList_OnlyDirectChildren(t *testing.T) {
	ctx := context.Background()
	client := testClient(t, "test-list")

	for _, path := range []string{"trackers/22222222", "trackers/11111111", "viewers/abc"} {
		if err := client.Merge(ctx, path, storage.Document{"lat": 0.0}); err != nil {
			t.Fatalf("merge %s failed: %v", path, err)
		}
	}

	ids, err := client.List(ctx, storage.TrackersCollection)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "11111111" || ids[1] != "22222222" {
		t.Errorf("expected [11111111 22222222], got %v", ids)
	}
}

func TestReads_PullBeforeReadingWithAutoSync(t *testing.T) {
	ctx := context.Background()
	client := testClient(t, "test-pull")
	path := storage.TrackerPath("12345678")

	if err := client.Merge(ctx, path, storage.Document{"lat": 1.0, "lng": 2.0}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	pulls := 0
	client.autoSync = true
	client.pull = func() error {
		pulls++
		return nil
	}

	if _, err := client.Get(ctx, path); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if pulls != 1 {
		t.Errorf("expected Get to pull once, pulled %d times", pulls)
	}

	if _, err := client.List(ctx, storage.TrackersCollection); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if pulls != 2 {
		t.Errorf("expected List to pull once, pulled %d times", pulls-1)
	}
}

func TestReads_FallBackToLocalCopyWhenPullFails(t *testing.T) {
	ctx := context.Background()
	client := testClient(t, "test-pull-fail")
	path := storage.TrackerPath("12345678")

	if err := client.Merge(ctx, path, storage.Document{"lat": 1.0, "lng": 2.0}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	client.autoSync = true
	client.pull = func() error { return errors.New("charm server unreachable") }

	doc, err := client.Get(ctx, path)
	if err != nil {
		t.Fatalf("expected local read after failed pull, got %v", err)
	}
	if doc["lat"] != 1.0 {
		t.Errorf("expected local document, got %v", doc)
	}

	ids, err := client.List(ctx, storage.TrackersCollection)
	if err != nil || len(ids) != 1 {
		t.Errorf("expected one local id, got %v (err %v)", ids, err)
	}
}

func TestReads_NoPullWithoutAutoSync(t *testing.T) {
	client := testClient(t, "test-no-pull")
	client.pull = func() error {
		t.Error("pull called with auto-sync off")
		return nil
	}

	_, err := client.Get(context.Background(), storage.TrackerPath("12345678"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIsMissingKey(t *testing.T) {
	if !isMissingKey(badger.ErrKeyNotFound) {
		t.Error("expected badger.ErrKeyNotFound to count as missing")
	}
	if !isMissingKey(fmt.Errorf("get: %w", badger.ErrKeyNotFound)) {
		t.Error("expected wrapped badger.ErrKeyNotFound to count as missing")
	}
	if isMissingKey(errors.New("disk full")) {
		t.Error("expected other errors not to count as missing")
	}
}

func TestDefaultConfig_UsesEnvHost(t *testing.T) {
	t.Setenv("CHARM_HOST", "charm.example.com")

	cfg := DefaultConfig()
	if cfg.CharmHost != "charm.example.com" {
		t.Errorf("expected host from env, got %q", cfg.CharmHost)
	}
	if !cfg.AutoSync {
		t.Error("expected auto-sync on by default")
	}
}

func TestDefaultConfig_FallsBackToDefaultHost(t *testing.T) {
	t.Setenv("CHARM_HOST", "")

	if cfg := DefaultConfig(); cfg.CharmHost != DefaultCharmHost {
		t.Errorf("expected default host, got %q", cfg.CharmHost)
	}
}
