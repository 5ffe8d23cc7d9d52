package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/notifd/internal/history"
	"github.com/jmylchreest/notifd/internal/model"
)

var historyOpts struct {
	app     string
	urgency string
	since   string
	limit   int
	unread  bool
	format  string
}

// Styles for the list output. Colors follow the terminal palette so the
// output adapts to the user's theme.
var (
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	appStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	unreadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bodyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// historyCmd represents the history command group.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and manage notification history",
	Long: `Browse and manage the persisted notification history.

Without a subcommand, lists history newest first.

Examples:
  # List everything
  notifctl history

  # Only firefox notifications from the last hour
  notifctl history --app firefox --since 1h

  # The last five critical notifications as JSON
  notifctl history --urgency critical --limit 5 --format json`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notification history",
	RunE:  runHistoryList,
}

var historyReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Mark all history entries as read",
	RunE:  runHistoryRead,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply retention limits to history now",
	RunE:  runHistoryPrune,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all notification history",
	RunE:  runHistoryClear,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyReadCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyClearCmd)

	for _, cmd := range []*cobra.Command{historyCmd, historyListCmd} {
		cmd.Flags().StringVar(&historyOpts.app, "app", "",
			"Filter by application name (exact match)")
		cmd.Flags().StringVar(&historyOpts.urgency, "urgency", "",
			"Filter by urgency (low, normal, critical)")
		cmd.Flags().StringVar(&historyOpts.since, "since", "",
			"Show notifications from the last duration (e.g. 30m, 1h, 7d)")
		cmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 0,
			"Maximum number of notifications to show (0=unlimited)")
		cmd.Flags().BoolVar(&historyOpts.unread, "unread", false,
			"Show only unread notifications")
		cmd.Flags().StringVarP(&historyOpts.format, "format", "f", "plain",
			"Output format (plain, json)")
	}

	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := filterRecords(store.Records())
	if err != nil {
		return err
	}

	if strings.EqualFold(historyOpts.format, "json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No notifications in history.")
		return nil
	}

	// Newest first for terminal reading.
	for i := len(records) - 1; i >= 0; i-- {
		fmt.Println(renderRecord(records[i]))
	}
	return nil
}

func runHistoryRead(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	unread := store.UnreadCount()
	if err := store.MarkAllRead(); err != nil {
		return err
	}
	fmt.Printf("Marked %d notification(s) as read.\n", unread)
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Prune()
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d notification(s).\n", removed)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	count := store.Len()
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Printf("Cleared %d notification(s).\n", count)
	return nil
}

// filterRecords applies the list flags.
func filterRecords(records []history.Record) ([]history.Record, error) {
	var cutoff time.Time
	if historyOpts.since != "" {
		d, err := parseSince(historyOpts.since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since value %q: %w", historyOpts.since, err)
		}
		cutoff = time.Now().Add(-d)
	}

	var urgency *model.Urgency
	if historyOpts.urgency != "" {
		u, err := parseUrgency(historyOpts.urgency)
		if err != nil {
			return nil, err
		}
		urgency = &u
	}

	out := make([]history.Record, 0, len(records))
	for _, r := range records {
		if historyOpts.app != "" && r.AppName != historyOpts.app {
			continue
		}
		if urgency != nil && r.Hints.Urgency != *urgency {
			continue
		}
		if !cutoff.IsZero() && r.Timestamp.Before(cutoff) {
			continue
		}
		if historyOpts.unread && r.Read {
			continue
		}
		out = append(out, r)
	}

	// Limit keeps the newest.
	if historyOpts.limit > 0 && len(out) > historyOpts.limit {
		out = out[len(out)-historyOpts.limit:]
	}
	return out, nil
}

// renderRecord formats one history line:
//
//	5m ago  Firefox  Download Complete: file.zip
func renderRecord(r history.Record) string {
	ts := timeStyle.Render(fmt.Sprintf("%-14s", humanize.Time(r.Timestamp)))
	app := appStyle.Render(r.AppName)

	summary := r.Summary
	if r.Hints.Urgency == model.UrgencyCritical {
		summary = criticalStyle.Render(summary)
	} else if !r.Read {
		summary = unreadStyle.Render(summary)
	}

	line := fmt.Sprintf("%s %s  %s", ts, app, summary)
	if r.Body != "" {
		body := r.Body
		if len(body) > 80 {
			body = body[:77] + "..."
		}
		line += "  " + bodyStyle.Render(body)
	}
	return line
}

// parseSince parses a duration, additionally accepting "d" (days) and
// "w" (weeks) suffixes.
func parseSince(s string) (time.Duration, error) {
	if n := len(s); n > 1 {
		if value, err := strconv.Atoi(s[:n-1]); err == nil {
			switch s[n-1] {
			case 'd':
				return time.Duration(value) * 24 * time.Hour, nil
			case 'w':
				return time.Duration(value) * 7 * 24 * time.Hour, nil
			}
		}
	}
	return time.ParseDuration(s)
}

// parseUrgency maps the urgency flag to a model.Urgency.
func parseUrgency(s string) (model.Urgency, error) {
	switch strings.ToLower(s) {
	case "low":
		return model.UrgencyLow, nil
	case "normal":
		return model.UrgencyNormal, nil
	case "critical":
		return model.UrgencyCritical, nil
	default:
		return 0, fmt.Errorf("invalid urgency %q (expected low, normal, critical)", s)
	}
}
