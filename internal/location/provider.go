// ABOUTME: Location provider interface and subscription types
// ABOUTME: Sources deliver batches of fixes at a requested cadence

package location

import (
	"context"
	"errors"
	"time"

	"github.com/harper/beacon/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DefaultInterval is the cadence requested by the reporting loop.
const DefaultInterval = 5 * time.Second

// Priority expresses the accuracy/power trade-off requested from a source.
type Priority int

// PriorityHighAccuracy asks for the most precise fixes the source can give.
const PriorityHighAccuracy Priority = iota

func (p Priority) String() string {
	if p == PriorityHighAccuracy {
		return "high_accuracy"
	}
	return "unknown"
}

var (
	// ErrDisabled means the location source is missing or switched off.
	ErrDisabled = errors.New("location source is disabled")
	// ErrPermission means the process may not read the location source.
	ErrPermission = errors.New("permission denied for location source")
	// ErrAlreadySubscribed is returned by sources that hold one open stream.
	ErrAlreadySubscribed = errors.New("location updates already requested")
)

// Request describes the updates a subscriber wants.
type Request struct {
	Interval    time.Duration
	Priority    Priority
	MinDistance float64 // meters; 0 delivers every fix
}

// DefaultRequest returns the request used by the reporting loop.
func DefaultRequest() Request {
	return Request{Interval: DefaultInterval, Priority: PriorityHighAccuracy, MinDistance: 0}
}

// distanceGate drops fixes closer than min meters to the last one let through.
type distanceGate struct {
	min  float64
	last *models.Fix
}

func newDistanceGate(meters float64) *distanceGate {
	return &distanceGate{min: meters}
}

// filter returns the fixes far enough apart to deliver, in order.
func (g *distanceGate) filter(fixes []models.Fix) []models.Fix {
	if g.min <= 0 {
		return fixes
	}
	var kept []models.Fix
	for _, fix := range fixes {
		if g.last != nil && Distance(*g.last, fix) < g.min {
			continue
		}
		f := fix
		g.last = &f
		kept = append(kept, fix)
	}
	return kept
}

// Distance returns the great-circle distance between two fixes in meters.
func Distance(a, b models.Fix) float64 {
	return geo.Distance(orb.Point{a.Longitude, a.Latitude}, orb.Point{b.Longitude, b.Latitude})
}

// Callback receives every fix gathered since the previous delivery, oldest first.
type Callback func(fixes []models.Fix)

// Subscription is an active request for updates.
type Subscription interface {
	// Remove stops deliveries. No callback runs after Remove returns.
	Remove() error
}

// Provider is a source of location fixes.
type Provider interface {
	Name() string
	// CheckSettings reports whether the source can deliver fixes, returning
	// ErrDisabled or ErrPermission when it cannot.
	CheckSettings(ctx context.Context) error
	// RequestUpdates starts delivering batches of fixes to cb on the
	// provider's own goroutine.
	RequestUpdates(req Request, cb Callback) (Subscription, error)
}
