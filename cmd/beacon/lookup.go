// ABOUTME: Beacon lookup command
// ABOUTME: Shows the latest reported position for a tracker id

package main

import (
	"errors"
	"fmt"

	"github.com/harper/beacon/internal/geojson"
	"github.com/harper/beacon/internal/lookup"
	"github.com/harper/beacon/internal/models"
	"github.com/harper/beacon/internal/storage"
	"github.com/harper/beacon/internal/ui"
	"github.com/spf13/cobra"
)

var lookupGeoJSONFlag bool

var lookupCmd = &cobra.Command{
	Use:     "lookup <id>",
	Aliases: []string{"l"},
	Short:   "Get the latest position of a tracker",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		report, err := lookup.Get(cmd.Context(), store, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("tracker '%s' is not reporting", id)
		}
		if err != nil {
			return err
		}

		if lookupGeoJSONFlag {
			fc := geojson.ToPointsFeatureCollection([]models.Tracker{{ID: id, Report: report}})
			data, err := fc.ToJSONIndent()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatReport(id, report))
		return nil
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupGeoJSONFlag, "geojson", false, "Print a GeoJSON FeatureCollection")
	rootCmd.AddCommand(lookupCmd)
}
