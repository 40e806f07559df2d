// ABOUTME: Charm KV client wrapper using transactional Do API
// ABOUTME: Short-lived connections so the agent and the CLI can share the database

package charm

import (
	"errors"
	"os"

	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

const (
	// DBName is the name of the Charm KV database for tracker documents.
	DBName = "beacon"

	// DefaultCharmHost is the default Charm server to use.
	DefaultCharmHost = "charm.2389.dev"
)

// Client holds configuration for KV operations.
// It does NOT hold a persistent connection: each operation opens the
// database, performs the operation, and closes it.
type Client struct {
	dbName   string
	autoSync bool

	// pull fetches remote changes before a read; nil means Sync.
	pull func() error
}

// Config holds client configuration options.
type Config struct {
	// CharmHost is the Charm server to use (default: charm.2389.dev).
	CharmHost string
	// AutoSync pushes every write to the charm server and pulls before reads.
	AutoSync bool
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = DefaultCharmHost
	}
	return &Config{
		CharmHost: host,
		AutoSync:  true,
	}
}

// NewClient creates a new client with the given config.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Set CHARM_HOST before any KV operations
	if err := os.Setenv("CHARM_HOST", cfg.CharmHost); err != nil {
		return nil, err
	}

	return &Client{
		dbName:   DBName,
		autoSync: cfg.AutoSync,
	}, nil
}

// NewTestClient creates a client for testing without network access.
func NewTestClient(dbName string) (*Client, error) {
	return &Client{
		dbName:   dbName,
		autoSync: false,
	}, nil
}

// isMissingKey reports whether err means the key does not exist.
func isMissingKey(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}

// refresh pulls remote changes when auto-sync is on. Read-only opens never
// sync, so without it a viewer only sees its own local copy. A failed pull
// leaves the read on the local copy.
func (c *Client) refresh() {
	if !c.autoSync {
		return
	}
	pull := c.pull
	if pull == nil {
		pull = c.Sync
	}
	_ = pull()
}

// get retrieves a value by key (read-only, no lock contention).
func (c *Client) get(key []byte) ([]byte, error) {
	c.refresh()
	var val []byte
	err := kv.DoReadOnly(c.dbName, func(k *kv.KV) error {
		var err error
		val, err = k.Get(key)
		return err
	})
	return val, err
}

// keys returns all keys in the database.
func (c *Client) keys() ([][]byte, error) {
	c.refresh()
	var keys [][]byte
	err := kv.DoReadOnly(c.dbName, func(k *kv.KV) error {
		var err error
		keys, err = k.Keys()
		return err
	})
	return keys, err
}

// do executes fn with write access to the database, syncing afterwards
// when auto-sync is enabled.
func (c *Client) do(fn func(k *kv.KV) error) error {
	return kv.Do(c.dbName, func(k *kv.KV) error {
		if err := fn(k); err != nil {
			return err
		}
		if c.autoSync {
			return k.Sync()
		}
		return nil
	})
}

// Sync pushes local writes to the charm server and pulls remote ones.
func (c *Client) Sync() error {
	return kv.Do(c.dbName, func(k *kv.KV) error {
		return k.Sync()
	})
}

// Reset discards the local copy and pulls a fresh one from the charm server.
func (c *Client) Reset() error {
	return kv.Do(c.dbName, func(k *kv.KV) error {
		return k.Reset()
	})
}

// Close is a no-op: connections are closed after each operation.
func (c *Client) Close() error {
	return nil
}
