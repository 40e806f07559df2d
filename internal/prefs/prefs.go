// ABOUTME: Local key-value preferences backed by badger
// ABOUTME: Persists the tracker id and agent marker across process restarts

package prefs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// Keys used by beacon.
const (
	// KeyTrackerID is the id adopted by the reporting service.
	KeyTrackerID = "t_id"
	// KeyActiveID is the id shown and handed out by the controller.
	KeyActiveID = "active_id"
	// KeyAgentPID, KeyAgentID and KeyAgentSince mark a running agent.
	KeyAgentPID   = "agent_pid"
	KeyAgentID    = "agent_id"
	KeyAgentSince = "agent_since"
)

// Another process holding the database is waited out for up to
// lockRetries*lockBackoff.
const (
	lockRetries = 40
	lockBackoff = 50 * time.Millisecond
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("preference not found")

// Store persists string preferences. Each call opens the database for the
// duration of one transaction so that several processes can share it.
// An in-memory store keeps a single handle open instead.
type Store struct {
	dir string

	mu  sync.Mutex
	mem *badger.DB
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // user data directory
		return nil, fmt.Errorf("create prefs directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory prefs: %w", err)
	}
	return &Store{mem: db}, nil
}

func (s *Store) withDB(fn func(db *badger.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mem != nil {
		return fn(s.mem)
	}

	db, err := s.open()
	if err != nil {
		return fmt.Errorf("open prefs: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

// open retries while another process holds the directory lock.
func (s *Store) open() (*badger.DB, error) {
	var lastErr error
	for attempt := 0; attempt < lockRetries; attempt++ {
		db, err := badger.Open(badger.DefaultOptions(s.dir).WithLogger(nil))
		if err == nil {
			return db, nil
		}
		if !strings.Contains(err.Error(), "directory lock") {
			return nil, err
		}
		lastErr = err
		time.Sleep(lockBackoff)
	}
	return nil, lastErr
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	var val string
	err := s.withDB(func(db *badger.DB) error {
		return db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				return err
			}
			b, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			val = string(b)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

// GetString returns the value under key, or def when it is unset or unreadable.
func (s *Store) GetString(key, def string) string {
	val, err := s.Get(key)
	if err != nil || val == "" {
		return def
	}
	return val
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// SetMany stores several values in one transaction.
func (s *Store) SetMany(values map[string]string) error {
	err := s.withDB(func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			for k, v := range values {
				if err := txn.Set([]byte(k), []byte(v)); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("set prefs: %w", err)
	}
	return nil
}

// Remove deletes the given keys. Missing keys are ignored.
func (s *Store) Remove(keys ...string) error {
	err := s.withDB(func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			for _, k := range keys {
				if err := txn.Delete([]byte(k)); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("remove prefs: %w", err)
	}
	return nil
}

// Close releases the in-memory database, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mem != nil {
		err := s.mem.Close()
		s.mem = nil
		return err
	}
	return nil
}
