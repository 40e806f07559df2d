// ABOUTME: Document store interface for tracker documents
// ABOUTME: Enables testability and storage backend swapping

package storage

import (
	"context"
	"fmt"
	"maps"
	"strings"
)

// TrackersCollection is the collection holding one document per tracker id.
const TrackersCollection = "trackers"

// Document is a schemaless set of fields stored at a path.
type Document map[string]any

// DocumentStore is a key-value document API keyed by slash-separated paths.
type DocumentStore interface {
	// Get returns the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)
	// Merge writes fields into the document at path, creating it if needed.
	// Fields not named in the update are left untouched.
	Merge(ctx context.Context, path string, fields Document) error
	// Delete removes the document at path. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
	// List returns the ids of all documents directly under collection.
	List(ctx context.Context, collection string) ([]string, error)
	Close() error
}

// TrackerPath returns the document path for a tracker id.
func TrackerPath(id string) string {
	return TrackersCollection + "/" + id
}

// ValidatePath rejects paths that cannot address a document.
func ValidatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") || strings.Contains(path, "//") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

// MergeFields returns a copy of existing with update applied on top.
func MergeFields(existing, update Document) Document {
	merged := make(Document, len(existing)+len(update))
	maps.Copy(merged, existing)
	maps.Copy(merged, update)
	return merged
}

// childID returns the id of a document directly under collection, if path is one.
func childID(collection, path string) (string, bool) {
	prefix := collection + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// ChildIDs filters paths down to the ids of documents directly under collection.
func ChildIDs(collection string, paths []string) []string {
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		if id, ok := childID(collection, p); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
