package audio

import (
	"log/slog"

	"github.com/jmylchreest/notifd/internal/config"
	"github.com/jmylchreest/notifd/internal/model"
)

// filePlayer abstracts the Player for the policy layer.
type filePlayer interface {
	Play(path string) error
	SetVolume(volume float64)
}

// Manager applies the sound policy for delivered notifications: the
// sound-file hint wins, then the per-urgency configured sound. Silent
// apps, the suppress-sound hint, and disabled sound skip playback.
type Manager struct {
	configFn func() *config.Config
	player   filePlayer
	logger   *slog.Logger
}

// NewManager creates a sound policy manager over the given player.
func NewManager(configFn func() *config.Config, player filePlayer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		configFn: configFn,
		player:   player,
		logger:   logger,
	}
}

// Play plays the appropriate sound for a delivered notification, if
// any. Playback failures are logged, never propagated.
func (m *Manager) Play(n model.Notification) {
	cfg := m.configFn()

	if !cfg.Sound.Enabled {
		return
	}
	if n.Hints.SuppressSound {
		return
	}
	if cfg.IsAppSilent(n.AppName) {
		m.logger.Debug("sound suppressed for silent app", "app_name", n.AppName)
		return
	}

	path := n.Hints.SoundFile
	if path == "" {
		path = cfg.SoundForUrgency(byte(n.Hints.Urgency))
	}
	if path == "" {
		return
	}

	m.player.SetVolume(float64(cfg.Sound.Volume) / 100.0)
	if err := m.player.Play(path); err != nil {
		m.logger.Warn("failed to play notification sound", "path", path, "error", err)
	}
}
