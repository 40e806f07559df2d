// ABOUTME: Beacon start command
// ABOUTME: Checks the location source, then reports in the foreground until stopped

package main

import (
	"github.com/harper/beacon/internal/lookup"
	"github.com/spf13/cobra"
)

var (
	startIDFlag     string
	startSourceFlag string
	startAddrFlag   string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start reporting this device's position",
	Long: `Start reporting this device's position under the current tracker id.

The location source is checked first. Reporting then runs in the foreground
until interrupted or until 'beacon stop' is run from another terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if startIDFlag != "" {
			if err := lookup.ValidateID(startIDFlag); err != nil {
				return err
			}
		}
		provider, err := openProvider(startSourceFlag)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		ctrl := newController(provider)
		id, err := ctrl.Prepare(ctx)
		if err != nil {
			return sourceHint(err)
		}
		if startIDFlag != "" {
			id = startIDFlag
		}

		addr := startAddrFlag
		if addr == "" {
			addr = cfg.MetricsAddr
		}
		return runAgent(ctx, newService(provider), id, addr)
	},
}

func init() {
	startCmd.Flags().StringVar(&startIDFlag, "id", "", "Report under this id instead of the cached one")
	startCmd.Flags().StringVar(&startSourceFlag, "source", "", "Location source (nmea:<path>, nmea:tcp://host:port, static:<lat>,<lng>)")
	startCmd.Flags().StringVar(&startAddrFlag, "metrics-addr", "", "Serve the viewer and /metrics on this address while reporting")
	rootCmd.AddCommand(startCmd)
}
