package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/notifd/internal/config"
	"github.com/jmylchreest/notifd/internal/model"
)

type fakePlayer struct {
	played []string
	volume float64
}

func (f *fakePlayer) Play(path string) error {
	f.played = append(f.played, path)
	return nil
}

func (f *fakePlayer) SetVolume(volume float64) {
	f.volume = volume
}

func soundNote(app string, urgency model.Urgency) model.Notification {
	return model.Notification{
		AppName: app,
		Hints:   model.Hints{Urgency: urgency, Progress: -1},
	}
}

func TestPlayPolicy(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config, *model.Notification)
		expected []string
	}{
		{
			name:     "per-urgency sound for normal",
			mutate:   func(c *config.Config, n *model.Notification) {},
			expected: []string{"/sounds/normal.wav"},
		},
		{
			name: "critical urgency selects critical sound",
			mutate: func(c *config.Config, n *model.Notification) {
				n.Hints.Urgency = model.UrgencyCritical
			},
			expected: []string{"/sounds/critical.wav"},
		},
		{
			name: "sound-file hint wins over config",
			mutate: func(c *config.Config, n *model.Notification) {
				n.Hints.SoundFile = "/custom/ding.ogg"
			},
			expected: []string{"/custom/ding.ogg"},
		},
		{
			name: "sound disabled globally",
			mutate: func(c *config.Config, n *model.Notification) {
				c.Sound.Enabled = false
			},
			expected: nil,
		},
		{
			name: "suppress-sound hint",
			mutate: func(c *config.Config, n *model.Notification) {
				n.Hints.SuppressSound = true
			},
			expected: nil,
		},
		{
			name: "silent app",
			mutate: func(c *config.Config, n *model.Notification) {
				c.Apps.Silent = []string{"test-app"}
			},
			expected: nil,
		},
		{
			name: "no sound configured for urgency",
			mutate: func(c *config.Config, n *model.Notification) {
				c.Sound.Normal = ""
			},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Sound.Low = "/sounds/low.wav"
			cfg.Sound.Normal = "/sounds/normal.wav"
			cfg.Sound.Critical = "/sounds/critical.wav"

			n := soundNote("test-app", model.UrgencyNormal)
			tt.mutate(cfg, &n)

			player := &fakePlayer{}
			m := NewManager(func() *config.Config { return cfg }, player, nil)
			m.Play(n)

			assert.Equal(t, tt.expected, player.played)
		})
	}
}

func TestPlaySetsVolumeFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Sound.Normal = "/sounds/normal.wav"
	cfg.Sound.Volume = 40

	player := &fakePlayer{}
	m := NewManager(func() *config.Config { return cfg }, player, nil)
	m.Play(soundNote("app", model.UrgencyNormal))

	assert.InDelta(t, 0.4, player.volume, 0.001)
}
