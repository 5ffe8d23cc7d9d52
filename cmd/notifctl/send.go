package main

import (
	"fmt"
	"strings"

	dbus "github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	notifdbus "github.com/jmylchreest/notifd/internal/dbus"
	"github.com/jmylchreest/notifd/internal/state"
)

var sendOpts struct {
	app       string
	icon      string
	urgency   string
	timeout   int32
	replaces  uint32
	category  string
	transient bool
	resident  bool
	actions   []string
}

// sendCmd sends a notification through the daemon.
var sendCmd = &cobra.Command{
	Use:   "send SUMMARY [BODY]",
	Short: "Send a notification",
	Long: `Send a notification via org.freedesktop.Notifications.

The notification goes through the normal delivery path, so permission
rules, Do Not Disturb, and history all apply.

Examples:
  # Simple notification
  notifctl send "Build finished"

  # Critical with a body and a 10s timeout
  notifctl send --urgency critical --timeout 10000 "Disk full" "/ is at 98%"

  # Replace a previous notification
  notifctl send --replaces 42 "Progress" "60% done"

  # Offer an action button
  notifctl send --action open=Open "Download complete" "file.zip"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendOpts.app, "app", "a", "notifctl",
		"Application name to send as")
	sendCmd.Flags().StringVar(&sendOpts.icon, "icon", "",
		"Icon name or path")
	sendCmd.Flags().StringVarP(&sendOpts.urgency, "urgency", "u", "normal",
		"Urgency (low, normal, critical)")
	sendCmd.Flags().Int32VarP(&sendOpts.timeout, "timeout", "t", -1,
		"Expire timeout in milliseconds (-1=server default, 0=never)")
	sendCmd.Flags().Uint32VarP(&sendOpts.replaces, "replaces", "r", 0,
		"ID of the notification to replace")
	sendCmd.Flags().StringVar(&sendOpts.category, "category", "",
		"Notification category hint")
	sendCmd.Flags().BoolVar(&sendOpts.transient, "transient", false,
		"Mark the notification transient (kept out of history)")
	sendCmd.Flags().BoolVar(&sendOpts.resident, "resident", false,
		"Mark the notification resident (never auto-closed)")
	sendCmd.Flags().StringArrayVar(&sendOpts.actions, "action", nil,
		"Action as key=label (repeatable)")

	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	summary := args[0]
	body := ""
	if len(args) > 1 {
		body = args[1]
	}

	urgency, err := parseUrgency(sendOpts.urgency)
	if err != nil {
		return err
	}

	actions, err := parseActionFlags(sendOpts.actions)
	if err != nil {
		return err
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(urgency)),
	}
	if sendOpts.category != "" {
		hints["category"] = dbus.MakeVariant(sendOpts.category)
	}
	if sendOpts.transient {
		hints["transient"] = dbus.MakeVariant(true)
	}
	if sendOpts.resident {
		hints["resident"] = dbus.MakeVariant(true)
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(notifdbus.DBusBusName, notifdbus.DBusPath)
	call := obj.Call(notifdbus.DBusInterface+".Notify", 0,
		sendOpts.app, sendOpts.replaces, sendOpts.icon, summary, body,
		actions, hints, sendOpts.timeout)
	if call.Err != nil {
		return fmt.Errorf("notify call failed: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to read notification id: %w", err)
	}

	if id == 0 {
		fmt.Println("Notification rejected (application disabled).")
		return nil
	}

	fmt.Printf("Notification sent (id %d).\n", id)
	recordLastNotification()
	return nil
}

// recordLastNotification stamps the shared state so status can show
// when a notification was last sent. Best effort.
func recordLastNotification() {
	path, err := statePath()
	if err != nil {
		return
	}
	st, err := state.LoadSharedStateFrom(path)
	if err != nil {
		return
	}
	st.UpdateLastNotification()
	if err := state.SaveSharedStateTo(path, st); err != nil {
		logger.Debug("failed to update shared state", "error", err)
	}
}

// parseActionFlags converts repeated key=label flags into the flat
// wire-format action list.
func parseActionFlags(flags []string) ([]string, error) {
	actions := make([]string, 0, len(flags)*2)
	for _, f := range flags {
		key, label, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid action %q (expected key=label)", f)
		}
		if label == "" {
			label = key
		}
		actions = append(actions, key, label)
	}
	return actions, nil
}
