// ABOUTME: Beacon id command
// ABOUTME: Prints the current tracker id or draws a fresh one

package main

import (
	"fmt"

	"github.com/harper/beacon/internal/ui"
	"github.com/spf13/cobra"
)

var idNewFlag bool

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Show the tracker id to share",
	Long: `Show the tracker id a viewer needs to find this device.

An id is generated and cached on first use. --new discards it and draws
another; this is refused while an agent is reporting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := newController(nil)

		var (
			id  string
			err error
		)
		if idNewFlag {
			if agent, ok := ctrl.Running(); ok {
				return fmt.Errorf("agent is reporting as %s (pid %d); stop it first", agent.ID, agent.PID)
			}
			id, err = newGenerator().Renew(cmd.Context())
		} else {
			id, err = ctrl.CurrentID(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatTrackerID(id))
		return nil
	},
}

func init() {
	idCmd.Flags().BoolVar(&idNewFlag, "new", false, "Discard the cached id and draw a new one")
	rootCmd.AddCommand(idCmd)
}
