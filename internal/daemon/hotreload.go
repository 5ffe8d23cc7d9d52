package daemon

import (
	"log/slog"
	"sync/atomic"

	"github.com/jmylchreest/notifd/internal/config"
)

// ConfigStore holds the live configuration behind an atomic pointer so
// every component reading through Get sees reloads immediately.
type ConfigStore struct {
	ptr    atomic.Pointer[config.Config]
	path   string
	logger *slog.Logger

	// OnReload runs after a successful reload with the new config.
	OnReload func(cfg *config.Config)
	// OnError runs when a reload is rejected.
	OnError func(err error)
}

// NewConfigStore creates a ConfigStore seeded with the given config.
func NewConfigStore(initial *config.Config, path string, logger *slog.Logger) *ConfigStore {
	if logger == nil {
		logger = slog.Default()
	}
	cs := &ConfigStore{path: path, logger: logger}
	cs.ptr.Store(initial)
	return cs
}

// Get returns the current configuration. Never nil.
func (cs *ConfigStore) Get() *config.Config {
	return cs.ptr.Load()
}

// Reload re-reads the config file. An invalid file is rejected and the
// previous configuration stays in effect.
func (cs *ConfigStore) Reload() error {
	cfg, err := config.LoadFrom(cs.path)
	if err != nil {
		cs.logger.Warn("config reload rejected", "path", cs.path, "error", err)
		if cs.OnError != nil {
			cs.OnError(err)
		}
		return err
	}

	cs.ptr.Store(cfg)
	cs.logger.Info("config reloaded", "path", cs.path)
	if cs.OnReload != nil {
		cs.OnReload(cfg)
	}
	return nil
}
