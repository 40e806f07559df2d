// ABOUTME: Start/stop glue between the CLI, the id generator, and a running agent
// ABOUTME: Checks the location source, tracks the agent marker, and signals teardown

package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/beacon/internal/location"
	"github.com/harper/beacon/internal/models"
	"github.com/harper/beacon/internal/prefs"
	"github.com/harper/beacon/internal/storage"
)

// IDSource hands out tracker ids. *session.Generator implements it.
type IDSource interface {
	Cached() (string, bool)
	Ensure(ctx context.Context) (string, error)
	Renew(ctx context.Context) (string, error)
}

// Prefs is the local storage holding the agent marker and the active id.
type Prefs interface {
	GetString(key, def string) string
	Remove(keys ...string) error
}

// Agent describes a running reporting process.
type Agent struct {
	PID   int
	ID    string
	Since time.Time
}

// Config wires a Controller to its collaborators.
type Config struct {
	IDs      IDSource
	Store    storage.DocumentStore
	Prefs    Prefs
	Provider location.Provider
	Logger   *log.Logger

	// Signal and Alive default to real process signalling.
	Signal func(pid int, sig os.Signal) error
	Alive  func(pid int) bool
}

// Controller presents the current id and toggles reporting.
type Controller struct {
	cfg Config
}

// New returns a controller.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.Signal == nil {
		cfg.Signal = signalProcess
	}
	if cfg.Alive == nil {
		cfg.Alive = processAlive
	}
	return &Controller{cfg: cfg}
}

// Running returns the agent recorded in the marker, if its process is alive.
func (c *Controller) Running() (Agent, bool) {
	pid, err := strconv.Atoi(c.cfg.Prefs.GetString(prefs.KeyAgentPID, ""))
	if err != nil || pid <= 0 {
		return Agent{}, false
	}
	if !c.cfg.Alive(pid) {
		return Agent{}, false
	}
	a := Agent{
		PID: pid,
		ID:  c.cfg.Prefs.GetString(prefs.KeyAgentID, models.UnknownTrackerID),
	}
	if since, err := time.Parse(time.RFC3339, c.cfg.Prefs.GetString(prefs.KeyAgentSince, "")); err == nil {
		a.Since = since
	}
	return a, true
}

// CurrentID returns the id of the running agent, or the cached id, or a
// freshly generated one.
func (c *Controller) CurrentID(ctx context.Context) (string, error) {
	if a, ok := c.Running(); ok {
		return a.ID, nil
	}
	return c.cfg.IDs.Ensure(ctx)
}

// Prepare checks the location source and returns the id to start with.
func (c *Controller) Prepare(ctx context.Context) (string, error) {
	if a, ok := c.Running(); ok {
		return "", fmt.Errorf("agent already reporting as %s (pid %d)", a.ID, a.PID)
	}
	if c.cfg.Provider == nil {
		return "", fmt.Errorf("%w: no location source configured", location.ErrDisabled)
	}
	if err := c.cfg.Provider.CheckSettings(ctx); err != nil {
		c.cfg.Logger.Warn("location source unavailable", "source", c.cfg.Provider.Name(), "err", err)
		return "", err
	}
	return c.cfg.IDs.Ensure(ctx)
}

// Stop disconnects the current id, signals the running agent to tear down,
// and hands out a fresh id.
func (c *Controller) Stop(ctx context.Context) (string, error) {
	agent, running := c.Running()

	id := agent.ID
	if !running {
		id, _ = c.cfg.IDs.Cached()
	}
	if id != "" && id != models.UnknownTrackerID {
		path := storage.TrackerPath(id)
		if err := c.cfg.Store.Delete(ctx, path); err != nil {
			c.cfg.Logger.Warn("tracker document not deleted", "path", path, "err", err)
		}
	}

	if running {
		if err := c.cfg.Signal(agent.PID, syscall.SIGTERM); err != nil {
			c.cfg.Logger.Warn("could not signal agent", "pid", agent.PID, "err", err)
		} else {
			c.cfg.Logger.Info("agent signalled", "pid", agent.PID, "id", agent.ID)
		}
	}

	if err := c.cfg.Prefs.Remove(prefs.KeyActiveID); err != nil {
		return "", fmt.Errorf("clear active id: %w", err)
	}
	return c.cfg.IDs.Renew(ctx)
}

// Wait blocks until the running agent has exited or ctx is done.
func (c *Controller) Wait(ctx context.Context, pid int) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for c.cfg.Alive(pid) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func signalProcess(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

// processAlive checks pid with signal 0.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
