// ABOUTME: Background reporting loop that writes location fixes to the store
// ABOUTME: Adopts a tracker id, subscribes to fixes, and cleans up on stop

package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/beacon/internal/location"
	"github.com/harper/beacon/internal/metrics"
	"github.com/harper/beacon/internal/models"
	"github.com/harper/beacon/internal/prefs"
	"github.com/harper/beacon/internal/storage"
)

const (
	// DefaultStaleAfter drops fixes older than this when they are delivered.
	DefaultStaleAfter = 15 * time.Second
	// DefaultWriteTimeout bounds a single store call.
	DefaultWriteTimeout = 10 * time.Second
	// DefaultTeardownTimeout bounds the cleanup Run performs after cancellation.
	DefaultTeardownTimeout = 10 * time.Second
)

// Prefs is the local storage the service persists its tracker id in.
type Prefs interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(keys ...string) error
}

// Session is the context of one reporting run.
type Session struct {
	ID      string
	RunID   string
	Started time.Time
}

// Config wires a Service to its collaborators.
type Config struct {
	Store    storage.DocumentStore
	Prefs    Prefs
	Provider location.Provider
	Notifier Notifier
	Logger   *log.Logger
	Metrics  *metrics.Metrics

	Request         location.Request
	StaleAfter      time.Duration // 0 disables the staleness check
	WriteTimeout    time.Duration
	TeardownTimeout time.Duration

	Now func() time.Time
}

// Service is the reporting loop.
type Service struct {
	cfg Config

	mu      sync.Mutex
	state   State
	session *Session
	sub     location.Subscription
	last    *models.Report
	written int
}

// New returns an idle service. Zero durations and a zero request take
// their defaults; StaleAfter is used as given.
func New(cfg Config) *Service {
	if cfg.Request.Interval <= 0 {
		cfg.Request = location.DefaultRequest()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = DefaultTeardownTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Service{cfg: cfg, state: StateIdle}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns the active session, if the service has started.
func (s *Service) Session() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// LastReport returns the most recently written report and the number of
// successful writes in this run.
func (s *Service) LastReport() (*models.Report, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.written
}

// resolveID adopts id, persisting it, or recovers the persisted one.
func (s *Service) resolveID(id string) string {
	if id != "" {
		if err := s.cfg.Prefs.Set(prefs.KeyTrackerID, id); err != nil {
			s.cfg.Logger.Warn("could not persist tracker id", "id", id, "err", err)
		}
		return id
	}
	persisted, err := s.cfg.Prefs.Get(prefs.KeyTrackerID)
	if err != nil || persisted == "" {
		if err != nil && !errors.Is(err, prefs.ErrNotFound) {
			s.cfg.Logger.Warn("could not read persisted tracker id", "err", err)
		}
		return models.UnknownTrackerID
	}
	return persisted
}

// Start adopts id (or the persisted id when empty), posts the status
// notification, and subscribes to location updates. Starting a running
// service switches it to the new id without subscribing again.
func (s *Service) Start(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := s.resolveID(id)

	if s.state == StateReporting {
		s.session.ID = resolved
		s.post(*s.session)
		return nil
	}

	s.state = StateStarting
	s.session = &Session{ID: resolved, RunID: uuid.NewString(), Started: s.cfg.Now()}
	s.last, s.written = nil, 0
	s.post(*s.session)

	sub, err := s.cfg.Provider.RequestUpdates(s.cfg.Request, s.onFixes)
	if err != nil {
		s.state = StateIdle
		s.clear()
		return fmt.Errorf("request location updates: %w", err)
	}
	s.sub = sub
	s.state = StateReporting

	s.cfg.Logger.Info("reporting started",
		"id", resolved,
		"run", s.session.RunID,
		"source", s.cfg.Provider.Name(),
		"interval", s.cfg.Request.Interval,
		"priority", s.cfg.Request.Priority)
	return nil
}

func (s *Service) post(sess Session) {
	if err := s.cfg.Notifier.Post(sess); err != nil {
		s.cfg.Logger.Warn("could not post status", "err", err)
	}
}

func (s *Service) clear() {
	if err := s.cfg.Notifier.Clear(); err != nil {
		s.cfg.Logger.Warn("could not clear status", "err", err)
	}
}

// onFixes runs on the provider's goroutine.
func (s *Service) onFixes(fixes []models.Fix) {
	s.mu.Lock()
	if s.state != StateReporting || s.session == nil {
		s.mu.Unlock()
		return
	}
	sess := *s.session
	s.mu.Unlock()

	s.handle(sess, fixes)
}

// handle writes the newest fix of a delivery. Earlier fixes in the same
// delivery are dropped. Store failures are logged and not retried.
func (s *Service) handle(sess Session, fixes []models.Fix) {
	if len(fixes) == 0 {
		s.cfg.Metrics.Fix("empty")
		return
	}
	fix := fixes[len(fixes)-1]
	now := s.cfg.Now()

	if err := models.ValidateCoordinates(fix.Latitude, fix.Longitude); err != nil {
		s.cfg.Metrics.Fix("invalid")
		s.cfg.Logger.Warn("dropping invalid fix", "err", err)
		return
	}
	if s.cfg.StaleAfter > 0 && fix.Age(now) > s.cfg.StaleAfter {
		s.cfg.Metrics.Fix("stale")
		s.cfg.Logger.Debug("dropping stale fix", "age", fix.Age(now).Round(time.Millisecond))
		return
	}

	report := models.NewReport(fix, now, sess.RunID)
	path := storage.TrackerPath(sess.ID)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	err := s.cfg.Store.Merge(ctx, path, report.Fields())
	s.cfg.Metrics.StoreOp("merge", err)
	if err != nil {
		s.cfg.Logger.Warn("report not written", "path", path, "err", err)
		return
	}
	s.cfg.Metrics.Fix("written")
	s.cfg.Logger.Debug("report written", "path", path, "lat", report.Latitude, "lng", report.Longitude)

	s.mu.Lock()
	s.last = report
	s.written++
	s.mu.Unlock()
}

// Stop unsubscribes from location updates, clears the status, and, unless
// the id is the UNKNOWN sentinel, deletes the remote document and forgets
// the persisted id. The delete is not retried.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReporting && s.state != StateStarting {
		s.mu.Unlock()
		return nil
	}
	sub, sess := s.sub, *s.session
	s.sub = nil
	s.state = StateStopped
	s.mu.Unlock()

	// Remove waits for an in-flight delivery, so no write lands after the delete.
	if sub != nil {
		if err := sub.Remove(); err != nil {
			s.cfg.Logger.Warn("could not remove location updates", "err", err)
		}
	}
	s.clear()

	if sess.ID != models.UnknownTrackerID {
		path := storage.TrackerPath(sess.ID)
		err := s.cfg.Store.Delete(ctx, path)
		s.cfg.Metrics.StoreOp("delete", err)
		if err != nil {
			s.cfg.Logger.Warn("tracker document not deleted", "path", path, "err", err)
		}
		if err := s.cfg.Prefs.Remove(prefs.KeyTrackerID); err != nil {
			s.cfg.Logger.Warn("could not clear persisted tracker id", "err", err)
		}
	}

	s.cfg.Logger.Info("reporting stopped", "id", sess.ID, "run", sess.RunID)
	return nil
}

// Run starts the service and keeps it alive until ctx is cancelled, then
// stops it with a fresh bounded context.
func (s *Service) Run(ctx context.Context, id string) error {
	if err := s.Start(ctx, id); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.TeardownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}
