// ABOUTME: Beacon list command
// ABOUTME: Lists all trackers with their latest positions

package main

import (
	"fmt"

	"github.com/harper/beacon/internal/geojson"
	"github.com/harper/beacon/internal/lookup"
	"github.com/harper/beacon/internal/ui"
	"github.com/spf13/cobra"
)

var listGeoJSONFlag bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all reporting trackers",
	RunE: func(cmd *cobra.Command, args []string) error {
		trackers, err := lookup.List(cmd.Context(), store)
		if err != nil {
			return fmt.Errorf("failed to list trackers: %w", err)
		}
		out := cmd.OutOrStdout()

		if listGeoJSONFlag {
			data, err := geojson.ToPointsFeatureCollection(trackers).ToJSONIndent()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(trackers) == 0 {
			fmt.Fprintln(out, "No trackers reporting. Use 'beacon start' to report this device.")
			return nil
		}
		for _, t := range trackers {
			fmt.Fprintln(out, ui.FormatReport(t.ID, t.Report))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listGeoJSONFlag, "geojson", false, "Print a GeoJSON FeatureCollection")
	rootCmd.AddCommand(listCmd)
}
