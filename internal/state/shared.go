package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CurrentSchemaVersion is the current version of the state schema.
const CurrentSchemaVersion = 1

// stateFileMutex serializes access to the state file within a process.
var stateFileMutex sync.Mutex

// DataDir returns the path to the notifd data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/notifd.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "notifd"), nil
}

// HistoryPath returns the path to the notification history file.
func HistoryPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "history.jsonl"), nil
}

// StateFilePath returns the path to the shared state file.
func StateFilePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "state.json"), nil
}

// SharedState is persisted to state.json and shared between notifd and
// notifctl. notifctl writes DnD toggles here; the daemon watches the
// file and picks them up.
type SharedState struct {
	DnDEnabled   bool   `json:"dnd_enabled"`
	DnDChangedAt int64  `json:"dnd_changed_at,omitempty"`
	DnDChangedBy string `json:"dnd_changed_by,omitempty"`

	LastNotificationAt int64 `json:"last_notification_at,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

// DefaultSharedState returns a new SharedState with default values.
func DefaultSharedState() *SharedState {
	return &SharedState{SchemaVersion: CurrentSchemaVersion}
}

// LoadSharedState loads the shared state from disk. A missing or
// corrupted file yields the default state.
func LoadSharedState() (*SharedState, error) {
	path, err := StateFilePath()
	if err != nil {
		return nil, err
	}
	return LoadSharedStateFrom(path)
}

// LoadSharedStateFrom loads the shared state from the given path.
func LoadSharedStateFrom(path string) (*SharedState, error) {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSharedState(), nil
		}
		return nil, err
	}

	var state SharedState
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultSharedState(), nil
	}
	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	return &state, nil
}

// SaveSharedState saves the shared state to disk atomically.
func SaveSharedState(state *SharedState) error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}
	return SaveSharedStateTo(path, state)
}

// SaveSharedStateTo saves the shared state to the given path.
func SaveSharedStateTo(path string, state *SharedState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// SetDnD updates the Do Not Disturb flag with transition bookkeeping.
func (s *SharedState) SetDnD(enabled bool, source string) {
	s.DnDEnabled = enabled
	s.DnDChangedAt = time.Now().Unix()
	s.DnDChangedBy = source
}

// ToggleDnD flips the Do Not Disturb flag and returns the new value.
func (s *SharedState) ToggleDnD(source string) bool {
	s.SetDnD(!s.DnDEnabled, source)
	return s.DnDEnabled
}

// UpdateLastNotification records the delivery timestamp shown by
// notifctl status.
func (s *SharedState) UpdateLastNotification() {
	s.LastNotificationAt = time.Now().Unix()
}
