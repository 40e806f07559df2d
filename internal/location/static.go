// ABOUTME: Simulated location source reporting a fixed position
// ABOUTME: Used for demos, dry runs, and tests without GPS hardware

package location

import (
	"context"
	"sync"
	"time"

	"github.com/harper/beacon/internal/models"
)

// Static reports the same coordinates at every interval.
type Static struct {
	Latitude  float64
	Longitude float64
	now       func() time.Time
}

// NewStatic returns a source fixed at lat, lng.
func NewStatic(lat, lng float64) (*Static, error) {
	if err := models.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	return &Static{Latitude: lat, Longitude: lng, now: time.Now}, nil
}

// Name returns the source description.
func (s *Static) Name() string {
	return "static"
}

// CheckSettings always succeeds.
func (s *Static) CheckSettings(ctx context.Context) error {
	return ctx.Err()
}

// RequestUpdates delivers one fix per interval until removed. With a
// minimum distance set, only the first fix is delivered.
func (s *Static) RequestUpdates(req Request, cb Callback) (Subscription, error) {
	interval := req.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	gate := newDistanceGate(req.MinDistance)
	sub := newTickerSub()
	go sub.run(interval, func() {
		fixes := gate.filter([]models.Fix{{Latitude: s.Latitude, Longitude: s.Longitude, Time: s.now()}})
		if len(fixes) > 0 {
			cb(fixes)
		}
	})
	return sub, nil
}

// tickerSub runs fn on every tick until removed.
type tickerSub struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newTickerSub() *tickerSub {
	return &tickerSub{stop: make(chan struct{}), done: make(chan struct{})}
}

func (t *tickerSub) run(interval time.Duration, fn func()) {
	defer close(t.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Remove stops the ticker and waits for an in-flight delivery to finish.
func (t *tickerSub) Remove() error {
	t.once.Do(func() { close(t.stop) })
	<-t.done
	return nil
}
