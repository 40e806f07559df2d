// ABOUTME: Behavioural tests shared by every DocumentStore implementation
// ABOUTME: Covers point reads, merge semantics, deletes, and listing

package storage

import (
	"context"
	"errors"
	"testing"
)

// runStoreTests exercises the DocumentStore contract against a fresh store.
func runStoreTests(t *testing.T, newStore func(t *testing.T) DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("get_missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, TrackerPath("12345678"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("merge_creates", func(t *testing.T) {
		s := newStore(t)
		if err := s.Merge(ctx, TrackerPath("12345678"), Document{"lat": 1.5, "lng": 2.5}); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		doc, err := s.Get(ctx, TrackerPath("12345678"))
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if doc["lat"] != 1.5 || doc["lng"] != 2.5 {
			t.Errorf("unexpected document: %v", doc)
		}
	})

	t.Run("merge_keeps_untouched_fields", func(t *testing.T) {
		s := newStore(t)
		path := TrackerPath("12345678")
		if err := s.Merge(ctx, path, Document{"lat": 1.0, "lng": 2.0, "name": "car"}); err != nil {
			t.Fatalf("first merge failed: %v", err)
		}
		if err := s.Merge(ctx, path, Document{"lat": 3.0, "lng": 4.0}); err != nil {
			t.Fatalf("second merge failed: %v", err)
		}

		doc, err := s.Get(ctx, path)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if doc["lat"] != 3.0 || doc["lng"] != 4.0 {
			t.Errorf("expected updated coordinates, got %v", doc)
		}
		if doc["name"] != "car" {
			t.Errorf("expected untouched field to survive merge, got %v", doc["name"])
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		path := TrackerPath("12345678")
		if err := s.Merge(ctx, path, Document{"lat": 1.0}); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		if err := s.Delete(ctx, path); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := s.Get(ctx, path); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("delete_missing", func(t *testing.T) {
		s := newStore(t)
		if err := s.Delete(ctx, TrackerPath("87654321")); err != nil {
			t.Errorf("deleting a missing document should succeed, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		s := newStore(t)
		for _, path := range []string{TrackerPath("22222222"), TrackerPath("11111111"), "other/33333333", "trackers/44444444/history"} {
			if err := s.Merge(ctx, path, Document{"lat": 0.0}); err != nil {
				t.Fatalf("merge %s failed: %v", path, err)
			}
		}

		ids, err := s.List(ctx, TrackersCollection)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "11111111" || ids[1] != "22222222" {
			t.Errorf("expected [11111111 22222222], got %v", ids)
		}
	})

	t.Run("invalid_path", func(t *testing.T) {
		s := newStore(t)
		if err := s.Merge(ctx, "", Document{"lat": 0.0}); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("expected ErrInvalidPath, got %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) DocumentStore {
		return NewMemoryStore()
	})
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Merge(ctx, "trackers/12345678", Document{"lat": 1.0}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	doc, _ := s.Get(ctx, "trackers/12345678")
	doc["lat"] = 99.0

	again, _ := s.Get(ctx, "trackers/12345678")
	if again["lat"] != 1.0 {
		t.Errorf("mutating a returned document leaked into the store: %v", again)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	if err := s.Merge(ctx, "trackers/12345678", Document{"lat": 1.0}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTrackerPath(t *testing.T) {
	if got := TrackerPath("12345678"); got != "trackers/12345678" {
		t.Errorf("expected trackers/12345678, got %q", got)
	}
}

func TestValidatePath(t *testing.T) {
	valid := []string{"trackers/1", "a", "a/b/c"}
	for _, p := range valid {
		if err := ValidatePath(p); err != nil {
			t.Errorf("ValidatePath(%q) unexpected error: %v", p, err)
		}
	}
	invalid := []string{"", "/trackers/1", "trackers/", "trackers//1"}
	for _, p := range invalid {
		if err := ValidatePath(p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ValidatePath(%q) expected ErrInvalidPath, got %v", p, err)
		}
	}
}

func TestMergeFields(t *testing.T) {
	existing := Document{"a": 1, "b": 2}
	merged := MergeFields(existing, Document{"b": 3, "c": 4})

	if merged["a"] != 1 || merged["b"] != 3 || merged["c"] != 4 {
		t.Errorf("unexpected merge result: %v", merged)
	}
	if existing["b"] != 2 {
		t.Error("MergeFields must not modify its input")
	}
}
