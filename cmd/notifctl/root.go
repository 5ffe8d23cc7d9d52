// Package main provides the CLI entrypoint for notifctl.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/notifd/internal/history"
	"github.com/jmylchreest/notifd/internal/state"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global options and state
var (
	globalOpts struct {
		verbose     bool
		historyFile string
		stateFile   string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "notifctl",
	Short: "Control and query the notifd notification daemon",
	Long: `notifctl controls and queries the notifd notification daemon.

It toggles Do Not Disturb mode, browses notification history, sends
test notifications, and reports daemon status for status bars.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.historyFile, "history-file", "",
		"Path to history file (default: ~/.local/share/notifd/history.jsonl)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.stateFile, "state-file", "",
		"Path to shared state file (default: ~/.local/share/notifd/state.json)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// statePath resolves the shared state file path.
func statePath() (string, error) {
	if globalOpts.stateFile != "" {
		return globalOpts.stateFile, nil
	}
	return state.StateFilePath()
}

// openHistory opens the history store read-write and loads it.
func openHistory() (*history.Store, error) {
	path := globalOpts.historyFile
	if path == "" {
		var err error
		path, err = state.HistoryPath()
		if err != nil {
			return nil, err
		}
	}

	persistence, err := history.NewJSONLPersistence(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	store := history.NewStore(persistence, logger)
	if err := store.Load(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return store, nil
}
