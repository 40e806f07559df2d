// ABOUTME: Beacon stop command
// ABOUTME: Disconnects the tracker, signals the running agent, and draws a new id

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harper/beacon/internal/ui"
	"github.com/spf13/cobra"
)

var stopWaitFlag time.Duration

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop reporting and retire the current tracker id",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := newController(nil)
		agent, running := ctrl.Running()

		newID, err := ctrl.Stop(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if running {
			if stopWaitFlag > 0 {
				ctx, cancel := context.WithTimeout(cmd.Context(), stopWaitFlag)
				defer cancel()
				if err := ctrl.Wait(ctx, agent.PID); err != nil {
					logger.Warn("agent still running", "pid", agent.PID, "err", err)
				}
			}
			fmt.Fprintf(out, "Stopped reporting as %s\n", ui.FormatTrackerID(agent.ID))
		} else {
			fmt.Fprintln(out, color.New(color.Faint).Sprint("No agent was reporting"))
		}
		fmt.Fprintf(out, "Next ID: %s\n", ui.FormatTrackerID(newID))
		return nil
	},
}

func init() {
	stopCmd.Flags().DurationVar(&stopWaitFlag, "wait", 15*time.Second, "How long to wait for the agent to exit (0 to not wait)")
	rootCmd.AddCommand(stopCmd)
}
