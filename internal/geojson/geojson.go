// ABOUTME: GeoJSON generation utilities
// ABOUTME: Converts tracker reports to GeoJSON Point features

package geojson

import (
	"encoding/json"
	"time"

	"github.com/harper/beacon/internal/models"
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string           `json:"type"`
	Coordinates PointCoordinates `json:"coordinates"`
}

// PointCoordinates represents [longitude, latitude] for a Point.
type PointCoordinates [2]float64

// ToFeature converts one tracker report to a Point feature.
func ToFeature(id string, r *models.Report) Feature {
	props := map[string]any{
		"tracker_id": id,
	}
	if !r.Timestamp.IsZero() {
		props["timestamp"] = r.Timestamp.UTC().Format(time.RFC3339)
	}
	if !r.FixTime.IsZero() {
		props["fix_time"] = r.FixTime.UTC().Format(time.RFC3339)
	}
	if r.Status != "" {
		props["status"] = r.Status
	}

	return Feature{
		Type: "Feature",
		ID:   id,
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: PointCoordinates{r.Longitude, r.Latitude},
		},
		Properties: props,
	}
}

// ToPointsFeatureCollection converts tracker reports to a FeatureCollection
// of Points. Trackers without a report are skipped.
func ToPointsFeatureCollection(trackers []models.Tracker) *FeatureCollection {
	features := make([]Feature, 0, len(trackers))
	for _, t := range trackers {
		if t.Report == nil {
			continue
		}
		features = append(features, ToFeature(t.ID, t.Report))
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ToJSON serializes a FeatureCollection to JSON.
func (fc *FeatureCollection) ToJSON() ([]byte, error) {
	return json.Marshal(fc)
}

// ToJSONIndent serializes a FeatureCollection to indented JSON.
func (fc *FeatureCollection) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
