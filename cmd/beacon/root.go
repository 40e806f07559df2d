// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config and opens the logger, document store, and local prefs

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/beacon/internal/config"
	"github.com/harper/beacon/internal/logging"
	"github.com/harper/beacon/internal/metrics"
	"github.com/harper/beacon/internal/prefs"
	"github.com/harper/beacon/internal/session"
	"github.com/harper/beacon/internal/storage"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfg        *config.Config
	logger     *log.Logger
	store      storage.DocumentStore
	prefsStore *prefs.Store
	appMetrics *metrics.Metrics

	logLevelFlag string
	backendFlag  string
	dryRunFlag   bool
)

var rootCmd = &cobra.Command{
	Use:     "beacon",
	Short:   "Report this device's GPS position under a shareable tracker id",
	Version: version,
	Long: `
██████╗ ███████╗ █████╗  ██████╗ ██████╗ ███╗   ██╗
██╔══██╗██╔════╝██╔══██╗██╔════╝██╔═══██╗████╗  ██║
██████╔╝█████╗  ███████║██║     ██║   ██║██╔██╗ ██║
██╔══██╗██╔══╝  ██╔══██║██║     ██║   ██║██║╚██╗██║
██████╔╝███████╗██║  ██║╚██████╗╚██████╔╝██║ ╚████║
╚═════╝ ╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝

     Share a live location under an 8-digit tracker id

Examples:
  beacon id
  beacon start --source nmea:/dev/ttyACM0
  beacon status
  beacon lookup 12345678
  beacon stop`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Document store: charm, sqlite, memory")
	rootCmd.PersistentFlags().BoolVar(&dryRunFlag, "dry-run", false, "Use an in-process store; nothing leaves this machine")
}

// setup loads config and opens shared resources for every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if backendFlag != "" {
		loaded.Backend = backendFlag
	}
	if dryRunFlag {
		loaded.Backend = config.BackendMemory
	}
	if logLevelFlag != "" {
		loaded.LogLevel = logLevelFlag
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger, err = logging.New(os.Stderr, cfg.GetLogLevel())
	if err != nil {
		return err
	}
	appMetrics = metrics.New(nil)

	store, err = cfg.OpenStorage()
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.GetBackend(), err)
	}
	prefsStore, err = prefs.Open(cfg.GetPrefsDir())
	if err != nil {
		return fmt.Errorf("failed to open local prefs: %w", err)
	}
	logger.Debug("ready", "backend", cfg.GetBackend(), "data_dir", cfg.GetDataDir())
	return nil
}

func teardown() error {
	var firstErr error
	if prefsStore != nil {
		if err := prefsStore.Close(); err != nil {
			firstErr = err
		}
		prefsStore = nil
	}
	if store != nil {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		store = nil
	}
	return firstErr
}

func newGenerator() *session.Generator {
	return session.NewGenerator(store, prefsStore, logger,
		session.WithMaxAttempts(cfg.GetMaxIDAttempts()),
		session.WithMetrics(appMetrics))
}
