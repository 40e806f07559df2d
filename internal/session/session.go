// ABOUTME: Tracker identifier generation and local caching
// ABOUTME: Draws random 8-digit ids and redraws while the remote document exists

package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/harper/beacon/internal/metrics"
	"github.com/harper/beacon/internal/models"
	"github.com/harper/beacon/internal/prefs"
	"github.com/harper/beacon/internal/storage"
)

// DefaultMaxAttempts bounds how many candidates Generate draws.
const DefaultMaxAttempts = 32

// ErrIDSpaceExhausted is returned when every drawn candidate was taken.
var ErrIDSpaceExhausted = errors.New("no free tracker id found")

// Prefs is the local storage the generator caches the active id in.
type Prefs interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Generator hands out tracker identifiers.
type Generator struct {
	store       storage.DocumentStore
	prefs       Prefs
	logger      *log.Logger
	metrics     *metrics.Metrics
	maxAttempts int
	intN        func(n int) int
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxAttempts sets the candidate limit. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRand replaces the random source; intN must return a value in [0, n).
func WithRand(intN func(n int) int) Option {
	return func(g *Generator) { g.intN = intN }
}

// WithMetrics records draws.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator returns a generator that checks candidates against store and
// caches the chosen id in p.
func NewGenerator(store storage.DocumentStore, p Prefs, logger *log.Logger, opts ...Option) *Generator {
	g := &Generator{
		store:       store,
		prefs:       p,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Draw returns a random candidate in the 8-digit range.
func (g *Generator) Draw() string {
	return strconv.Itoa(models.MinTrackerID + g.intN(models.MaxTrackerID-models.MinTrackerID+1))
}

// Generate draws candidates until one has no remote document. A failed
// read accepts the candidate. Nothing reserves the id, so two generators
// can still pick the same one.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id := g.Draw()
		_, err := g.store.Get(ctx, storage.TrackerPath(id))
		switch {
		case errors.Is(err, storage.ErrNotFound):
			g.metrics.Draw("accepted")
			return id, nil
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			g.metrics.Draw("read_error")
			g.logger.Warn("existence check failed, accepting id", "id", id, "err", err)
			return id, nil
		default:
			g.metrics.Draw("collision")
			g.logger.Debug("tracker id taken, redrawing", "id", id, "attempt", attempt)
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrIDSpaceExhausted, g.maxAttempts)
}

// Cached returns the id cached locally, if any.
func (g *Generator) Cached() (string, bool) {
	id, err := g.prefs.Get(prefs.KeyActiveID)
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// Ensure returns the cached active id, generating and caching a new one
// when none exists.
func (g *Generator) Ensure(ctx context.Context) (string, error) {
	if id, ok := g.Cached(); ok {
		return id, nil
	}
	return g.Renew(ctx)
}

// Renew generates a fresh id and caches it, replacing any cached one.
func (g *Generator) Renew(ctx context.Context) (string, error) {
	id, err := g.Generate(ctx)
	if err != nil {
		return "", err
	}
	if err := g.prefs.Set(prefs.KeyActiveID, id); err != nil {
		return "", fmt.Errorf("cache tracker id: %w", err)
	}
	g.logger.Info("tracker id assigned", "id", id)
	return id, nil
}
