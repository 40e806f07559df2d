// ABOUTME: Core data models for tracker identifiers, fixes, and reports
// ABOUTME: Converts location fixes to and from remote document fields

package models

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	// UnknownTrackerID is used when the service starts without an identifier
	// and none was persisted. Reports are still written under it, but it is
	// never deleted on stop.
	UnknownTrackerID = "UNKNOWN"

	// MinTrackerID and MaxTrackerID bound the 8-digit identifier space.
	MinTrackerID = 10000000
	MaxTrackerID = 99999999

	// StatusOnline is written with every report.
	StatusOnline = "online"
)

// Document field names for a tracker report.
const (
	FieldLatitude  = "lat"
	FieldLongitude = "lng"
	FieldTimestamp = "timestamp"
	FieldStatus    = "status"
	FieldFixTime   = "fix_time"
	FieldSession   = "session"
	FieldAccuracy  = "accuracy"
)

// ValidateCoordinates checks if latitude and longitude are within valid ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates cannot be NaN")
	}
	if math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates cannot be infinite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// IsTrackerID reports whether id is an 8-digit numeric tracker identifier.
func IsTrackerID(id string) bool {
	if len(id) != 8 {
		return false
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return false
	}
	return n >= MinTrackerID && n <= MaxTrackerID
}

// ValidateTrackerID returns an error unless id is a tracker identifier.
func ValidateTrackerID(id string) error {
	if !IsTrackerID(id) {
		return fmt.Errorf("invalid tracker id %q: must be 8 digits", id)
	}
	return nil
}

// Fix is a single location sample delivered by a location source.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Time      time.Time `json:"time"`
	Accuracy  float64   `json:"accuracy,omitempty"` // meters; 0 when unknown
	Speed     float64   `json:"speed,omitempty"`
}

// Age returns how old the fix is relative to now.
func (f Fix) Age(now time.Time) time.Duration {
	return now.Sub(f.Time)
}

// Report is the latest position written to a tracker document.
type Report struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Status    string    `json:"status,omitempty"`
	FixTime   time.Time `json:"fix_time,omitzero"`
	Session   string    `json:"session,omitempty"`
	Accuracy  float64   `json:"accuracy,omitempty"`
}

// NewReport builds an online report for fix, stamped with writtenAt.
func NewReport(fix Fix, writtenAt time.Time, session string) *Report {
	return &Report{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Timestamp: writtenAt,
		Status:    StatusOnline,
		FixTime:   fix.Time,
		Session:   session,
		Accuracy:  fix.Accuracy,
	}
}

// Fields returns the partial-update field set for a merge write.
// Timestamps are epoch milliseconds.
func (r *Report) Fields() map[string]any {
	fields := map[string]any{
		FieldLatitude:  r.Latitude,
		FieldLongitude: r.Longitude,
		FieldTimestamp: r.Timestamp.UnixMilli(),
	}
	if r.Status != "" {
		fields[FieldStatus] = r.Status
	}
	if !r.FixTime.IsZero() {
		fields[FieldFixTime] = r.FixTime.UnixMilli()
	}
	if r.Session != "" {
		fields[FieldSession] = r.Session
	}
	if r.Accuracy > 0 {
		fields[FieldAccuracy] = r.Accuracy
	}
	return fields
}

// ReportFromDocument parses stored document fields back into a Report.
// Numbers may arrive as float64 (JSON) or int64 (in-process stores).
func ReportFromDocument(doc map[string]any) (*Report, error) {
	lat, ok := number(doc[FieldLatitude])
	if !ok {
		return nil, fmt.Errorf("document has no %q field", FieldLatitude)
	}
	lng, ok := number(doc[FieldLongitude])
	if !ok {
		return nil, fmt.Errorf("document has no %q field", FieldLongitude)
	}

	r := &Report{Latitude: lat, Longitude: lng}
	if ms, ok := number(doc[FieldTimestamp]); ok {
		r.Timestamp = time.UnixMilli(int64(ms))
	}
	if ms, ok := number(doc[FieldFixTime]); ok {
		r.FixTime = time.UnixMilli(int64(ms))
	}
	if s, ok := doc[FieldStatus].(string); ok {
		r.Status = s
	}
	if s, ok := doc[FieldSession].(string); ok {
		r.Session = s
	}
	if acc, ok := number(doc[FieldAccuracy]); ok {
		r.Accuracy = acc
	}
	return r, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Tracker pairs a tracker id with its latest report, if any.
type Tracker struct {
	ID     string  `json:"id"`
	Report *Report `json:"report,omitempty"`
}
