// ABOUTME: User-visible status for a running reporting loop
// ABOUTME: Logs the active tracker id and persists an agent marker for the CLI

package reporter

import (
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/beacon/internal/prefs"
)

// Notifier keeps the user informed that reporting is active.
type Notifier interface {
	Post(sess Session) error
	Clear() error
}

type nopNotifier struct{}

func (nopNotifier) Post(Session) error { return nil }
func (nopNotifier) Clear() error       { return nil }

// MarkerStore is where the agent marker lives.
type MarkerStore interface {
	GetString(key, def string) string
	SetMany(values map[string]string) error
	Remove(keys ...string) error
}

// StatusNotifier logs a persistent status line and records which process
// is reporting under which id, so `beacon status` and `beacon stop` can
// find it.
type StatusNotifier struct {
	store  MarkerStore
	logger *log.Logger
	pid    int
}

// NewStatusNotifier returns a notifier for the process with the given pid.
func NewStatusNotifier(store MarkerStore, logger *log.Logger, pid int) *StatusNotifier {
	return &StatusNotifier{store: store, logger: logger, pid: pid}
}

// Post records the marker and prints the status line.
func (n *StatusNotifier) Post(sess Session) error {
	n.logger.Info("ID: " + sess.ID + " | Active")
	return n.store.SetMany(map[string]string{
		prefs.KeyAgentPID:   strconv.Itoa(n.pid),
		prefs.KeyAgentID:    sess.ID,
		prefs.KeyAgentSince: sess.Started.UTC().Format(time.RFC3339),
	})
}

// Clear removes the marker if this process still owns it.
func (n *StatusNotifier) Clear() error {
	if n.store.GetString(prefs.KeyAgentPID, "") != strconv.Itoa(n.pid) {
		return nil
	}
	return n.store.Remove(prefs.KeyAgentPID, prefs.KeyAgentID, prefs.KeyAgentSince)
}
