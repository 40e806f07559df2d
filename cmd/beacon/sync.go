// ABOUTME: Sync subcommand for the Charm account behind the default store
// ABOUTME: Links devices so viewers can read trackers, and pulls or resets the local copy

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	charmclient "github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/harper/beacon/internal/charm"
	"github.com/spf13/cobra"
)

// errNotCharm is returned by sync commands that need the charm backend.
var errNotCharm = errors.New("sync needs the charm backend (--backend charm)")

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Manage the Charm account that carries tracker documents",
	Long: `Trackers are stored in an encrypted Charm KV database. A viewer on
another device can only read a tracker when both devices are linked to the
same Charm account.

Commands:
  status  - Show the Charm host and the linked account
  link    - Link this device to your Charm account
  unlink  - Unlink this device from your account
  now     - Push local writes and pull remote ones
  repair  - Repair the local database
  reset   - Replace the local copy with the one on the server

Examples:
  beacon sync link
  beacon sync now
  beacon sync reset`,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Charm Host: %s\n", cfg.GetCharmHost())
		fmt.Fprintf(out, "Database:   %s\n", charm.DBName)
		fmt.Fprintf(out, "Backend:    %s\n", cfg.GetBackend())

		cc, err := charmclient.NewClientWithDefaults()
		if err != nil {
			fmt.Fprintln(out, color.YellowString("\nStatus: Not connected"))
			fmt.Fprintln(out, "Run 'beacon sync link' to connect your account.")
			return nil
		}
		user, err := cc.ID()
		if err != nil {
			fmt.Fprintln(out, color.YellowString("\nStatus: Not linked"))
			fmt.Fprintln(out, "Run 'beacon sync link' to connect your account.")
			return nil
		}

		fmt.Fprintf(out, "\nUser ID: %s\n", user)
		fmt.Fprintln(out, color.GreenString("Status: Connected"))
		return nil
	},
}

var syncLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link this device to your Charm account",
	Long: `Link this device to your Charm account using SSH keys. Link the
reporting device and every viewer to the same account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCharm(cmd, "link"); err != nil {
			return fmt.Errorf("failed to run 'charm link': %w\nMake sure the charm CLI is installed: go install github.com/charmbracelet/charm@latest", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("\n✓ Device linked"))
		return nil
	},
}

var syncUnlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Unlink this device from your Charm account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCharm(cmd, "unlink"); err != nil {
			return fmt.Errorf("failed to run 'charm unlink': %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("\n✓ Device unlinked"))
		fmt.Fprintln(cmd.OutOrStdout(), "Local data is kept. Viewers on other devices no longer see this one.")
		return nil
	},
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Push local writes and pull remote ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := charmStore()
		if err != nil {
			return err
		}
		if err := client.Sync(); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Synced with %s", cfg.GetCharmHost()))
		return nil
	},
}

var repairForce bool

var syncRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair the local database",
	Long: `Checkpoint the WAL, check integrity, and vacuum the local database.
With --force, a failed integrity check falls back to a reset from the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := charmStore(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		result, err := kv.Repair(charm.DBName, repairForce)
		if err != nil {
			fmt.Fprintln(out, color.RedString("✗ Repair failed: %v", err))
			if !repairForce {
				fmt.Fprintln(out, "Run with --force to attempt recovery.")
			}
			return err
		}

		if result.WalCheckpointed {
			fmt.Fprintln(out, color.GreenString("  ✓ WAL checkpointed"))
		}
		if result.IntegrityOK {
			fmt.Fprintln(out, color.GreenString("  ✓ Integrity check passed"))
		} else {
			fmt.Fprintln(out, color.RedString("  ✗ Integrity check failed"))
		}
		if result.Vacuumed {
			fmt.Fprintln(out, color.GreenString("  ✓ Database vacuumed"))
		}
		if result.ResetFromCloud {
			fmt.Fprintln(out, color.YellowString("  ⚠ Reset from cloud"))
		}
		fmt.Fprintln(out, color.GreenString("✓ Repair completed"))
		return nil
	},
}

var syncResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the local copy with the one on the server",
	Long: `Delete the local database and pull a fresh copy from the Charm server.
Writes that have not reached the server are lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := charmStore()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, color.YellowString("This discards local writes that have not been synced."))
		fmt.Fprint(out, "Continue? (y/N): ")

		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}

		if err := client.Reset(); err != nil {
			return fmt.Errorf("failed to reset: %w", err)
		}
		fmt.Fprintln(out, color.GreenString("✓ Local copy reset from %s", cfg.GetCharmHost()))
		return nil
	},
}

// charmStore returns the open store when it is the charm backend.
func charmStore() (*charm.Client, error) {
	client, ok := store.(*charm.Client)
	if !ok {
		return nil, errNotCharm
	}
	return client, nil
}

func runCharm(cmd *cobra.Command, arg string) error {
	c := exec.CommandContext(cmd.Context(), "charm", arg)
	c.Stdin = os.Stdin
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	c.Env = append(os.Environ(), "CHARM_HOST="+cfg.GetCharmHost())
	return c.Run()
}

func init() {
	syncRepairCmd.Flags().BoolVarP(&repairForce, "force", "f", false, "Reset from the server if the integrity check fails")

	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncLinkCmd)
	syncCmd.AddCommand(syncUnlinkCmd)
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncRepairCmd)
	syncCmd.AddCommand(syncResetCmd)

	rootCmd.AddCommand(syncCmd)
}
