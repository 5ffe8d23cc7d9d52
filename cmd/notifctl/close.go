package main

import (
	"fmt"
	"strconv"

	dbus "github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	notifdbus "github.com/jmylchreest/notifd/internal/dbus"
)

// closeCmd closes a notification by id.
var closeCmd = &cobra.Command{
	Use:   "close ID",
	Short: "Close a notification",
	Long: `Close a notification via org.freedesktop.Notifications.

The daemon emits NotificationClosed with the close-notification reason
and removes the popup if one is visible.`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid notification id %q", args[0])
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(notifdbus.DBusBusName, notifdbus.DBusPath)
	call := obj.Call(notifdbus.DBusInterface+".CloseNotification", 0, uint32(id))
	if call.Err != nil {
		return fmt.Errorf("close call failed: %w", call.Err)
	}

	fmt.Printf("Notification %d closed.\n", id)
	return nil
}
