// ABOUTME: Beacon status command
// ABOUTME: Shows whether an agent is reporting and its latest report

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/harper/beacon/internal/lookup"
	"github.com/harper/beacon/internal/storage"
	"github.com/harper/beacon/internal/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether this device is reporting",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := newController(nil)
		out := cmd.OutOrStdout()

		agent, running := ctrl.Running()
		if !running {
			id, err := ctrl.CurrentID(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ID: %s | %s\n", ui.FormatTrackerID(id), color.New(color.Faint).Sprint("Not reporting"))
			return nil
		}

		fmt.Fprintln(out, ui.FormatAgent(agent.ID, agent.PID, agent.Since))
		report, err := lookup.Get(cmd.Context(), store, agent.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			fmt.Fprintln(out, color.New(color.Faint).Sprint("  waiting for the first fix"))
		case err != nil:
			logger.Warn("could not read latest report", "id", agent.ID, "err", err)
		default:
			fmt.Fprintf(out, "  %s\n", ui.FormatReport(agent.ID, report))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
