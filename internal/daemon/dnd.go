package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/notifd/internal/config"
	"github.com/jmylchreest/notifd/internal/state"
)

// scheduleCheckInterval is how often the DnD schedule is re-evaluated.
const scheduleCheckInterval = 30 * time.Second

// DndSetter receives the effective DnD flag. Implemented by the
// protocol server.
type DndSetter interface {
	SetDnd(enabled bool)
}

// DndController computes the effective Do Not Disturb flag: the manual
// toggle from the shared state file OR an active schedule window. It
// re-evaluates on state-file changes and on a timer so schedule
// boundaries are crossed without external input.
type DndController struct {
	configFn  func() *config.Config
	statePath string
	setter    DndSetter
	logger    *slog.Logger

	// OnChange runs after the effective flag flips, with the new value
	// and whether the manual toggle caused it.
	OnChange func(enabled, manual bool)

	mu      sync.Mutex
	current bool
	known   bool

	done     chan struct{}
	stopOnce sync.Once
}

// NewDndController creates a DndController.
func NewDndController(configFn func() *config.Config, statePath string, setter DndSetter, logger *slog.Logger) *DndController {
	if logger == nil {
		logger = slog.Default()
	}
	return &DndController{
		configFn:  configFn,
		statePath: statePath,
		setter:    setter,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start evaluates once and begins the periodic schedule check.
func (c *DndController) Start() {
	c.Recompute()
	go c.loop()
}

// Stop ends the periodic check.
func (c *DndController) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *DndController) loop() {
	ticker := time.NewTicker(scheduleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Recompute()
		case <-c.done:
			return
		}
	}
}

// Recompute reads the shared state and the schedule and pushes the
// effective flag when it changed. Called by the state-file watcher and
// the timer.
func (c *DndController) Recompute() {
	cfg := c.configFn()

	manual := cfg.DnD.Enabled
	shared, err := state.LoadSharedStateFrom(c.statePath)
	if err != nil {
		c.logger.Warn("failed to read shared state", "path", c.statePath, "error", err)
	} else {
		manual = shared.DnDEnabled
	}

	scheduled := cfg.IsDnDScheduledAt(time.Now())
	effective := manual || scheduled

	c.mu.Lock()
	changed := !c.known || c.current != effective
	c.current = effective
	c.known = true
	c.mu.Unlock()

	if !changed {
		return
	}

	c.logger.Info("effective DnD changed", "enabled", effective, "manual", manual, "scheduled", scheduled)
	c.setter.SetDnd(effective)
	if c.OnChange != nil {
		c.OnChange(effective, manual)
	}
}

// Active returns the last computed effective flag.
func (c *DndController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
