package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/notifd/internal/model"
)

// internalTimeout is the expire timeout for daemon-originated
// notifications, in milliseconds.
const internalTimeout = 5000

// Sender injects a daemon-originated notification into the normal
// delivery path. Implemented by the protocol server.
type Sender interface {
	NotifyInternal(appName, summary, body string, urgency model.Urgency, expireTimeout int32) uint32
}

// InternalNotifier sends notifications about daemon events (config
// reload, DnD transitions). Rate limiting per key prevents floods when
// the same event repeats.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	sender Sender

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
}

// NewInternalNotifier creates an InternalNotifier over the given
// sender.
func NewInternalNotifier(sender Sender, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		sender:         sender,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
	}
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications
// sharing a key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends an internal notification unless the key is
// rate-limited.
func (n *InternalNotifier) Notify(key, summary, body string, urgency model.Urgency) {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return
	}
	if lastTime, ok := n.lastNotifyTime[key]; ok && time.Since(lastTime) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = time.Now()
	n.mu.Unlock()

	n.logger.Debug("sending internal notification", "key", key, "summary", summary)
	n.sender.NotifyInternal("notifd", summary, body, urgency, internalTimeout)
}

// NotifyConfigReloaded announces a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"notifd configuration has been successfully reloaded.",
		model.UrgencyLow,
	)
}

// NotifyConfigError announces a rejected config reload.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		model.UrgencyNormal,
	)
}

// NotifyDnDChanged announces a Do Not Disturb transition.
func (n *InternalNotifier) NotifyDnDChanged(enabled bool) {
	var summary, body string
	if enabled {
		summary = "Do Not Disturb Enabled"
		body = "Notifications will be suppressed."
	} else {
		summary = "Do Not Disturb Disabled"
		body = "Notifications will now be displayed."
	}
	n.Notify("dnd-change", summary, body, model.UrgencyLow)
}

// NotifyStartup announces the daemon start.
func (n *InternalNotifier) NotifyStartup(version string) {
	n.Notify(
		"startup",
		"notifd Started",
		"Notification daemon v"+version+" is now running.",
		model.UrgencyLow,
	)
}
