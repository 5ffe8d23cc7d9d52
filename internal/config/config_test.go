package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"seconds", "5s", 5 * time.Second, false},
		{"minutes", "1m", time.Minute, false},
		{"compound", "1h30m", 90 * time.Minute, false},
		{"integer milliseconds", "7000", 7 * time.Second, false},
		{"zero", "0", 0, false},
		{"invalid", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Duration())
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad position", func(c *Config) { c.Display.Position = "middle" }, "invalid position"},
		{"width too small", func(c *Config) { c.Display.Width = 50 }, "width"},
		{"max_visible zero", func(c *Config) { c.Display.MaxVisible = 0 }, "max_visible"},
		{"volume over 100", func(c *Config) { c.Sound.Volume = 150 }, "volume"},
		{"bad schedule time", func(c *Config) { c.DnD.ScheduleStart = "25:00" }, "schedule"},
		{"schedule missing colon", func(c *Config) { c.DnD.ScheduleEnd = "2200" }, "schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFrom(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("partial file overlays defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notifd.toml")
		content := `
[display]
position = "bottom-left"
max_visible = 3

[timeouts]
normal = "10s"

[apps]
disabled = ["spammy-app"]
priority = ["alarm-clock"]

[dnd]
schedule_enabled = true
schedule_start = "22:00"
schedule_end = "07:00"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		cfg, err := LoadFrom(path)
		require.NoError(t, err)

		assert.Equal(t, "bottom-left", cfg.Display.Position)
		assert.Equal(t, 3, cfg.Display.MaxVisible)
		assert.Equal(t, 10*time.Second, cfg.Timeouts.Normal.Duration())
		// Untouched fields keep defaults.
		assert.Equal(t, 5*time.Second, cfg.Timeouts.Low.Duration())
		assert.Equal(t, 380, cfg.Display.Width)
		assert.Equal(t, []string{"spammy-app"}, cfg.Apps.Disabled)
		assert.True(t, cfg.DnD.ScheduleEnabled)
	})

	t.Run("invalid file rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notifd.toml")
		require.NoError(t, os.WriteFile(path, []byte("[display]\nposition = \"nowhere\"\n"), 0600))

		_, err := LoadFrom(path)
		assert.Error(t, err)
	})
}

func TestAppPolicy(t *testing.T) {
	cfg := Default()
	cfg.Apps.Disabled = []string{"blocked"}
	cfg.Apps.Silent = []string{"quiet"}
	cfg.Apps.Priority = []string{"pager"}

	assert.False(t, cfg.IsAppAllowed("blocked"))
	assert.True(t, cfg.IsAppAllowed("anything-else"))
	assert.True(t, cfg.IsAppSilent("quiet"))
	assert.False(t, cfg.IsAppSilent("loud"))
	assert.True(t, cfg.IsPriorityApp("pager"))
	assert.False(t, cfg.IsPriorityApp("blocked"))
}

func TestIsDnDScheduledAt(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2025, 6, 1, hour, min, 0, 0, time.Local)
	}

	tests := []struct {
		name     string
		start    string
		end      string
		enabled  bool
		when     time.Time
		expected bool
	}{
		{"disabled schedule never matches", "09:00", "17:00", false, at(12, 0), false},
		{"inside same-day window", "09:00", "17:00", true, at(12, 0), true},
		{"before same-day window", "09:00", "17:00", true, at(8, 59), false},
		{"end is exclusive", "09:00", "17:00", true, at(17, 0), false},
		{"overnight late evening", "22:00", "07:00", true, at(23, 30), true},
		{"overnight early morning", "22:00", "07:00", true, at(6, 59), true},
		{"overnight daytime gap", "22:00", "07:00", true, at(12, 0), false},
		{"overnight start boundary", "22:00", "07:00", true, at(22, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.DnD.ScheduleEnabled = tt.enabled
			cfg.DnD.ScheduleStart = tt.start
			cfg.DnD.ScheduleEnd = tt.end
			assert.Equal(t, tt.expected, cfg.IsDnDScheduledAt(tt.when))
		})
	}
}

func TestTimeoutForUrgency(t *testing.T) {
	cfg := Default()
	cfg.Timeouts.Low = Duration(3 * time.Second)
	cfg.Timeouts.Normal = Duration(5 * time.Second)
	cfg.Timeouts.Critical = Duration(0)

	assert.Equal(t, 3*time.Second, cfg.TimeoutForUrgency(0))
	assert.Equal(t, 5*time.Second, cfg.TimeoutForUrgency(1))
	assert.Equal(t, time.Duration(0), cfg.TimeoutForUrgency(2))
	assert.Equal(t, 5*time.Second, cfg.TimeoutForUrgency(9))
}
