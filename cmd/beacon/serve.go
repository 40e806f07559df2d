// ABOUTME: Beacon serve command
// ABOUTME: Runs the HTTP viewer for tracker lookups

package main

import (
	"github.com/harper/beacon/internal/metrics"
	"github.com/harper/beacon/internal/viewer"
	"github.com/spf13/cobra"
)

var serveAddrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tracker lookups over HTTP",
	Long: `Serve tracker lookups over HTTP.

Routes:
  GET /trackers               all trackers with their latest reports
  GET /trackers/{id}          latest report for one tracker
  GET /trackers/{id}/geojson  the same as a GeoJSON Point feature
  GET /healthz
  GET /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		return viewer.ListenAndServe(ctx, serveAddrFlag, viewer.New(store, logger, metrics.Handler()), logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "127.0.0.1:8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
