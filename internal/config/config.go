// Package config loads and validates the notifd configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable
// strings. Supports formats like "5s", "10s", "1m", "1h30m", or integer
// milliseconds. A value of "0" or 0 means never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Integer values are treated as milliseconds.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the daemon configuration, loaded from
// ~/.config/notifd/notifd.toml.
type Config struct {
	Display  DisplayConfig  `toml:"display"`
	Timeouts TimeoutConfig  `toml:"timeouts"`
	Sound    SoundConfig    `toml:"sound"`
	DnD      DnDConfig      `toml:"dnd"`
	Apps     AppsConfig     `toml:"apps"`
	Behavior BehaviorConfig `toml:"behavior"`
}

// DisplayConfig contains popup display settings.
type DisplayConfig struct {
	Position   string `toml:"position"`    // "top-right", "top-left", etc.
	OffsetX    int    `toml:"offset_x"`    // Pixels from screen edge
	OffsetY    int    `toml:"offset_y"`    // Pixels from screen edge
	Width      int    `toml:"width"`       // Popup width in pixels
	MaxVisible int    `toml:"max_visible"` // Maximum simultaneous popups
	Gap        int    `toml:"gap"`         // Gap between stacked popups
	ShowIcons  bool   `toml:"show_icons"`
}

// TimeoutConfig contains default auto-close timeouts per urgency level,
// applied when the sender requests the server default (-1).
// A value of "0" means never expire.
type TimeoutConfig struct {
	Low      Duration `toml:"low"`
	Normal   Duration `toml:"normal"`
	Critical Duration `toml:"critical"`
}

// SoundConfig contains notification sound settings.
type SoundConfig struct {
	Enabled  bool   `toml:"enabled"`
	Volume   int    `toml:"volume"` // 0-100
	Low      string `toml:"low"`
	Normal   string `toml:"normal"`
	Critical string `toml:"critical"`
}

// DnDConfig contains Do Not Disturb settings.
type DnDConfig struct {
	Enabled         bool   `toml:"enabled"`          // Initial state
	ScheduleEnabled bool   `toml:"schedule_enabled"` // Enable the daily window below
	ScheduleStart   string `toml:"schedule_start"`   // "HH:MM"
	ScheduleEnd     string `toml:"schedule_end"`     // "HH:MM"
}

// AppsConfig contains per-application delivery policy.
type AppsConfig struct {
	Disabled []string `toml:"disabled"` // Apps not permitted to notify at all
	Silent   []string `toml:"silent"`   // Apps whose sounds are suppressed
	Priority []string `toml:"priority"` // Apps that bypass DnD
}

// BehaviorConfig contains presentation behavior settings.
type BehaviorConfig struct {
	SelfNotify bool `toml:"self_notify"` // Notify about daemon events (config reload, DnD)
}

// Positions accepted by DisplayConfig.Position.
var ValidPositions = []string{
	"top-left", "top-center", "top-right",
	"bottom-left", "bottom-center", "bottom-right",
}

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Position:   "top-right",
			OffsetX:    12,
			OffsetY:    12,
			Width:      380,
			MaxVisible: 5,
			Gap:        8,
			ShowIcons:  true,
		},
		Timeouts: TimeoutConfig{
			Low:      Duration(5 * time.Second),
			Normal:   Duration(5 * time.Second),
			Critical: Duration(0), // Never expires
		},
		Sound: SoundConfig{
			Enabled: true,
			Volume:  80,
		},
		DnD: DnDConfig{
			Enabled:         false,
			ScheduleEnabled: false,
			ScheduleStart:   "22:00",
			ScheduleEnd:     "07:00",
		},
		Apps: AppsConfig{},
		Behavior: BehaviorConfig{
			SelfNotify: true,
		},
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "notifd", "notifd.toml"), nil
}

// Load loads the configuration from disk.
// If the file doesn't exist, returns the default configuration.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents.
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk atomically.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(ValidPositions, c.Display.Position) {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions)
	}
	if c.Display.Width < 100 || c.Display.Width > 1000 {
		return fmt.Errorf("width must be between 100 and 1000, got %d", c.Display.Width)
	}
	if c.Display.MaxVisible < 1 || c.Display.MaxVisible > 20 {
		return fmt.Errorf("max_visible must be between 1 and 20, got %d", c.Display.MaxVisible)
	}
	if c.Sound.Volume < 0 || c.Sound.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Sound.Volume)
	}
	for _, v := range []string{c.DnD.ScheduleStart, c.DnD.ScheduleEnd} {
		if _, err := parseClock(v); err != nil {
			return fmt.Errorf("invalid schedule time %q: %w", v, err)
		}
	}
	return nil
}

// IsAppAllowed reports whether the app is permitted to notify at all.
func (c *Config) IsAppAllowed(appName string) bool {
	return !slices.Contains(c.Apps.Disabled, appName)
}

// IsPriorityApp reports whether the app bypasses Do Not Disturb.
func (c *Config) IsPriorityApp(appName string) bool {
	return slices.Contains(c.Apps.Priority, appName)
}

// IsAppSilent reports whether sounds are suppressed for the app.
func (c *Config) IsAppSilent(appName string) bool {
	return slices.Contains(c.Apps.Silent, appName)
}

// IsDnDScheduledAt reports whether the DnD schedule window covers the
// given time. Overnight windows (start > end) wrap past midnight.
func (c *Config) IsDnDScheduledAt(t time.Time) bool {
	if !c.DnD.ScheduleEnabled {
		return false
	}

	start, err := parseClock(c.DnD.ScheduleStart)
	if err != nil {
		return false
	}
	end, err := parseClock(c.DnD.ScheduleEnd)
	if err != nil {
		return false
	}

	now := t.Hour()*60 + t.Minute()
	if start <= end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

// TimeoutForUrgency returns the default auto-close timeout for the given
// urgency level, used when the sender requests the server default.
func (c *Config) TimeoutForUrgency(urgency byte) time.Duration {
	switch urgency {
	case 0:
		return c.Timeouts.Low.Duration()
	case 2:
		return c.Timeouts.Critical.Duration()
	default:
		return c.Timeouts.Normal.Duration()
	}
}

// SoundForUrgency returns the configured sound file path for the given
// urgency level, with ~ expanded.
func (c *Config) SoundForUrgency(urgency byte) string {
	var path string
	switch urgency {
	case 0:
		path = c.Sound.Low
	case 2:
		path = c.Sound.Critical
	default:
		path = c.Sound.Normal
	}
	return expandPath(path)
}

// parseClock parses an "HH:MM" string into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute %q", parts[1])
	}
	return h*60 + m, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
