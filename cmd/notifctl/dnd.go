package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/notifd/internal/state"
)

var dndOpts struct {
	quiet bool // Suppress output, return exit code only
}

// dndCmd represents the dnd command group.
var dndCmd = &cobra.Command{
	Use:   "dnd",
	Short: "Manage Do Not Disturb mode",
	Long: `Manage Do Not Disturb (DnD) mode for notifd.

When DnD is enabled, notifd suppresses notification popups and sounds
while still persisting notifications to history. Critical notifications
and priority applications are still shown.

The toggle is written to the shared state file; the daemon watches the
file and picks the change up immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to showing status
		return dndStatusRun(cmd, args)
	},
}

var dndOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable Do Not Disturb mode",
	RunE:  dndOnRun,
}

var dndOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable Do Not Disturb mode",
	RunE:  dndOffRun,
}

var dndToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle Do Not Disturb mode",
	RunE:  dndToggleRun,
}

var dndStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Do Not Disturb status",
	RunE:  dndStatusRun,
}

func init() {
	dndCmd.AddCommand(dndOnCmd)
	dndCmd.AddCommand(dndOffCmd)
	dndCmd.AddCommand(dndToggleCmd)
	dndCmd.AddCommand(dndStatusCmd)

	for _, cmd := range []*cobra.Command{dndCmd, dndOnCmd, dndOffCmd, dndToggleCmd, dndStatusCmd} {
		cmd.Flags().BoolVarP(&dndOpts.quiet, "quiet", "q", false,
			"Suppress output, return exit code only (0=off, 1=on)")
	}

	rootCmd.AddCommand(dndCmd)
}

// setDnd writes the manual toggle to the shared state file.
func setDnd(enabled bool) error {
	path, err := statePath()
	if err != nil {
		return err
	}

	st, err := state.LoadSharedStateFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	st.SetDnD(enabled, "notifctl")
	if err := state.SaveSharedStateTo(path, st); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func dndOnRun(cmd *cobra.Command, args []string) error {
	if err := setDnd(true); err != nil {
		return err
	}
	if !dndOpts.quiet {
		fmt.Println("Do Not Disturb: enabled")
	}

	// Exit code 1 means DnD is now on
	os.Exit(1)
	return nil
}

func dndOffRun(cmd *cobra.Command, args []string) error {
	if err := setDnd(false); err != nil {
		return err
	}
	if !dndOpts.quiet {
		fmt.Println("Do Not Disturb: disabled")
	}
	return nil
}

func dndToggleRun(cmd *cobra.Command, args []string) error {
	path, err := statePath()
	if err != nil {
		return err
	}

	st, err := state.LoadSharedStateFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	newEnabled := st.ToggleDnD("notifctl")
	if err := state.SaveSharedStateTo(path, st); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	if !dndOpts.quiet {
		if newEnabled {
			fmt.Println("Do Not Disturb: enabled")
		} else {
			fmt.Println("Do Not Disturb: disabled")
		}
	}

	// Exit code: 0=off, 1=on
	if newEnabled {
		os.Exit(1)
	}
	return nil
}

func dndStatusRun(cmd *cobra.Command, args []string) error {
	path, err := statePath()
	if err != nil {
		return err
	}

	st, err := state.LoadSharedStateFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	if !dndOpts.quiet {
		if st.DnDEnabled {
			fmt.Println("Do Not Disturb: enabled")
		} else {
			fmt.Println("Do Not Disturb: disabled")
		}

		if st.DnDChangedAt != 0 {
			fmt.Printf("  Last change: %s\n", humanize.Time(time.Unix(st.DnDChangedAt, 0)))
		}
		if st.DnDChangedBy != "" {
			fmt.Printf("  Changed by: %s\n", st.DnDChangedBy)
		}
	}

	// Exit code: 0=off, 1=on
	if st.DnDEnabled {
		os.Exit(1)
	}
	return nil
}
