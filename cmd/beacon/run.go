// ABOUTME: Beacon run command
// ABOUTME: Runs the reporting service directly, recovering the persisted id

package main

import (
	"fmt"

	"github.com/harper/beacon/internal/lookup"
	"github.com/spf13/cobra"
)

var (
	runIDFlag     string
	runSourceFlag string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reporting service without the start checks",
	Long: `Run the reporting service directly, as a supervisor would.

Without --id the id persisted by the last run is reused; with none
persisted, reports go to the UNKNOWN tracker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runIDFlag != "" {
			if err := lookup.ValidateID(runIDFlag); err != nil {
				return err
			}
		}
		provider, err := openProvider(runSourceFlag)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		if err := runAgent(ctx, newService(provider), runIDFlag, cfg.MetricsAddr); err != nil {
			return fmt.Errorf("reporting failed: %w", sourceHint(err))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runIDFlag, "id", "", "Report under this id")
	runCmd.Flags().StringVar(&runSourceFlag, "source", "", "Location source (nmea:<path>, nmea:tcp://host:port, static:<lat>,<lng>)")
	rootCmd.AddCommand(runCmd)
}
