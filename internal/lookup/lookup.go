// ABOUTME: Read side of tracker documents for viewers
// ABOUTME: Resolves a tracker id to its latest report and lists known trackers

package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/harper/beacon/internal/models"
	"github.com/harper/beacon/internal/storage"
)

// ErrInvalidID is returned for ids that cannot name a tracker.
var ErrInvalidID = errors.New("invalid tracker id")

// ValidateID accepts 8-digit ids and the UNKNOWN sentinel.
func ValidateID(id string) error {
	if id == models.UnknownTrackerID || models.IsTrackerID(id) {
		return nil
	}
	return fmt.Errorf("%w %q: must be 8 digits", ErrInvalidID, id)
}

// Get returns the latest report written under id, or storage.ErrNotFound.
func Get(ctx context.Context, store storage.DocumentStore, id string) (*models.Report, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	doc, err := store.Get(ctx, storage.TrackerPath(id))
	if err != nil {
		return nil, err
	}
	r, err := models.ReportFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("tracker %s: %w", id, err)
	}
	return r, nil
}

// List returns every tracker document with its report. Documents that do
// not hold a report are listed without one.
func List(ctx context.Context, store storage.DocumentStore) ([]models.Tracker, error) {
	ids, err := store.List(ctx, storage.TrackersCollection)
	if err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}

	trackers := make([]models.Tracker, 0, len(ids))
	for _, id := range ids {
		doc, err := store.Get(ctx, storage.TrackerPath(id))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get tracker %s: %w", id, err)
		}
		t := models.Tracker{ID: id}
		if r, err := models.ReportFromDocument(doc); err == nil {
			t.Report = r
		}
		trackers = append(trackers, t)
	}
	return trackers, nil
}
