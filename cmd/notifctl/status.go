package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	dbus "github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	notifdbus "github.com/jmylchreest/notifd/internal/dbus"
	"github.com/jmylchreest/notifd/internal/state"
)

var statusOpts struct {
	waybar bool
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// statusCmd reports daemon and history status.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Show the notification daemon status: server identification, Do Not
Disturb state, and history counts.

With --waybar, outputs JSON for Waybar's custom module:

  "custom/notifications": {
    "exec": "notifctl status --waybar",
    "interval": 5,
    "return-type": "json",
    "on-click": "notifctl dnd toggle"
  }`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false,
		"Output Waybar custom module JSON")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	name, vendor, serverVersion, specVersion, daemonErr := queryServerInfo()

	path, err := statePath()
	if err != nil {
		return err
	}
	shared, err := state.LoadSharedStateFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	unread := 0
	total := 0
	if store, err := openHistory(); err == nil {
		unread = store.UnreadCount()
		total = store.Len()
		_ = store.Close()
	} else {
		logger.Warn("failed to open history", "error", err)
	}

	if statusOpts.waybar {
		return outputWaybar(daemonErr == nil, shared.DnDEnabled, unread)
	}

	if daemonErr != nil {
		fmt.Println("Daemon: not running")
		logger.Debug("daemon query failed", "error", daemonErr)
	} else {
		fmt.Printf("Daemon: %s %s (%s, spec %s)\n", name, serverVersion, vendor, specVersion)
	}

	if shared.DnDEnabled {
		fmt.Println("Do Not Disturb: enabled")
	} else {
		fmt.Println("Do Not Disturb: disabled")
	}

	fmt.Printf("History: %d notification(s), %d unread\n", total, unread)
	if shared.LastNotificationAt != 0 {
		fmt.Printf("Last notification: %s\n",
			humanize.Time(time.Unix(shared.LastNotificationAt, 0)))
	}
	return nil
}

// queryServerInfo calls GetServerInformation on the session bus.
func queryServerInfo() (name, vendor, version, specVersion string, err error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(notifdbus.DBusBusName, notifdbus.DBusPath)
	call := obj.Call(notifdbus.DBusInterface+".GetServerInformation", 0)
	if call.Err != nil {
		return "", "", "", "", call.Err
	}
	if err := call.Store(&name, &vendor, &version, &specVersion); err != nil {
		return "", "", "", "", err
	}
	return name, vendor, version, specVersion, nil
}

// outputWaybar writes the status in Waybar's custom module format.
func outputWaybar(running, dnd bool, unread int) error {
	status := WaybarStatus{}

	switch {
	case !running:
		status.Alt = "error"
		status.Class = "error"
		status.Tooltip = "notifd is not running"
	case dnd:
		status.Text = fmt.Sprintf("%d", unread)
		status.Alt = "dnd"
		status.Class = "dnd"
		status.Tooltip = "Do Not Disturb enabled"
	case unread > 0:
		status.Text = fmt.Sprintf("%d", unread)
		status.Alt = "unread"
		status.Class = "unread"
		status.Tooltip = fmt.Sprintf("%d unread notification(s)", unread)
	default:
		status.Alt = "empty"
		status.Class = "empty"
	}

	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}
