// Package model defines the core data structures for notifd.
package model

import (
	"time"

	"github.com/godbus/dbus/v5"
)

// Urgency is the declared importance of a notification, per the
// freedesktop notification specification.
type Urgency byte

const (
	// UrgencyLow notifications can be hidden during DnD.
	UrgencyLow Urgency = 0
	// UrgencyNormal is the default level.
	UrgencyNormal Urgency = 1
	// UrgencyCritical notifications bypass DnD.
	UrgencyCritical Urgency = 2
)

// UrgencyFromByte maps the wire urgency byte to an Urgency.
// Out-of-range values fall back to normal.
func UrgencyFromByte(b byte) Urgency {
	switch b {
	case 0:
		return UrgencyLow
	case 2:
		return UrgencyCritical
	default:
		return UrgencyNormal
	}
}

// String returns the human-readable urgency name.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// CloseReason is the reason code attached to a notification removal.
// Values are defined by the freedesktop notification specification and
// never change once attached.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the auto-close timeout was reached.
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates a CloseNotification call.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved/undefined per the spec.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Action is a notification action button with its protocol key and
// display label.
type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ParseActions converts the flat wire action array into structured form.
// Actions arrive as alternating key/label pairs; a trailing orphan key is
// ignored.
func ParseActions(flat []string) []Action {
	actions := make([]Action, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		actions = append(actions, Action{Key: flat[i], Label: flat[i+1]})
	}
	return actions
}

// Hints is the typed form of the loosely-typed wire hints map.
type Hints struct {
	Urgency       Urgency `json:"urgency"`
	Category      string  `json:"category,omitempty"`
	DesktopEntry  string  `json:"desktop_entry,omitempty"`
	ImagePath     string  `json:"image_path,omitempty"`
	SoundFile     string  `json:"sound_file,omitempty"`
	SoundName     string  `json:"sound_name,omitempty"`
	SuppressSound bool    `json:"suppress_sound,omitempty"`
	Transient     bool    `json:"transient,omitempty"`
	Resident      bool    `json:"resident,omitempty"`

	// Screen position hint, if the sender requested one.
	X *int32 `json:"x,omitempty"`
	Y *int32 `json:"y,omitempty"`

	// Progress value (0-100), -1 when absent.
	Progress int `json:"progress,omitempty"`
}

// DefaultHints returns a Hints with the spec defaults.
func DefaultHints() Hints {
	return Hints{Urgency: UrgencyNormal, Progress: -1}
}

// ParseHints eagerly converts the wire hints map into a typed Hints.
// Unrecognized or mistyped keys are dropped individually; parsing is
// never fatal.
func ParseHints(hints map[string]dbus.Variant) Hints {
	h := DefaultHints()

	for key, variant := range hints {
		v := variant.Value()
		switch key {
		case "urgency":
			if b, ok := v.(byte); ok {
				h.Urgency = UrgencyFromByte(b)
			}
		case "category":
			if s, ok := v.(string); ok {
				h.Category = s
			}
		case "desktop-entry":
			if s, ok := v.(string); ok {
				h.DesktopEntry = s
			}
		case "image-path", "image_path":
			if s, ok := v.(string); ok {
				h.ImagePath = s
			}
		case "sound-file":
			if s, ok := v.(string); ok {
				h.SoundFile = s
			}
		case "sound-name":
			if s, ok := v.(string); ok {
				h.SoundName = s
			}
		case "suppress-sound":
			if b, ok := v.(bool); ok {
				h.SuppressSound = b
			}
		case "transient":
			if b, ok := v.(bool); ok {
				h.Transient = b
			}
		case "resident":
			if b, ok := v.(bool); ok {
				h.Resident = b
			}
		case "x":
			if i, ok := v.(int32); ok {
				h.X = &i
			}
		case "y":
			if i, ok := v.(int32); ok {
				h.Y = &i
			}
		case "value":
			switch n := v.(type) {
			case int32:
				h.Progress = int(n)
			case uint32:
				h.Progress = int(n)
			case byte:
				h.Progress = int(n)
			case int:
				h.Progress = n
			}
		}
	}

	return h
}

// Notification is a single notification as tracked by the daemon.
// A record is created once per Notify call (or overwritten in place on
// replace) and never mutated afterwards except for the Read flag.
type Notification struct {
	ID            uint32    `json:"id"`
	AppName       string    `json:"app_name"`
	AppIcon       string    `json:"app_icon,omitempty"`
	Summary       string    `json:"summary"`
	Body          string    `json:"body,omitempty"`
	Actions       []Action  `json:"actions,omitempty"`
	Hints         Hints     `json:"hints"`
	ExpireTimeout int32     `json:"expire_timeout"` // -1 = server default, 0 = never
	Timestamp     time.Time `json:"timestamp"`
	ReplacesID    uint32    `json:"replaces_id,omitempty"`
	Read          bool      `json:"read"`
}

// New builds a Notification from raw wire parameters, parsing the flat
// action array and the hints map into typed form.
func New(id uint32, appName string, replacesID uint32, appIcon, summary, body string,
	actions []string, hints map[string]dbus.Variant, expireTimeout int32) Notification {
	return Notification{
		ID:            id,
		AppName:       appName,
		AppIcon:       appIcon,
		Summary:       summary,
		Body:          body,
		Actions:       ParseActions(actions),
		Hints:         ParseHints(hints),
		ExpireTimeout: expireTimeout,
		Timestamp:     time.Now(),
		ReplacesID:    replacesID,
	}
}

// EffectiveTimeout resolves the requested expire timeout against the
// configured default. Positive values are used as-is, 0 means never
// auto-close, and -1 (or any other negative value) selects the default.
func (n *Notification) EffectiveTimeout(defaultTimeout time.Duration) time.Duration {
	switch {
	case n.ExpireTimeout > 0:
		return time.Duration(n.ExpireTimeout) * time.Millisecond
	case n.ExpireTimeout == 0:
		return 0
	default:
		return defaultTimeout
	}
}

// BypassesDnd reports whether this notification should be shown even
// while Do Not Disturb is active.
func (n *Notification) BypassesDnd() bool {
	return n.Hints.Urgency == UrgencyCritical
}

// IsTransient reports whether the notification should skip history
// persistence.
func (n *Notification) IsTransient() bool {
	return n.Hints.Transient
}

// IsResident reports whether the notification should stay up after an
// action is invoked and is exempt from auto-close timers.
func (n *Notification) IsResident() bool {
	return n.Hints.Resident
}

// HasProgress reports whether the sender supplied a progress value.
func (n *Notification) HasProgress() bool {
	return n.Hints.Progress >= 0
}

// Clone returns a deep copy of the notification, safe to send across
// the server/presentation boundary.
func (n *Notification) Clone() Notification {
	clone := *n
	if n.Actions != nil {
		clone.Actions = make([]Action, len(n.Actions))
		copy(clone.Actions, n.Actions)
	}
	if n.Hints.X != nil {
		x := *n.Hints.X
		clone.Hints.X = &x
	}
	if n.Hints.Y != nil {
		y := *n.Hints.Y
		clone.Hints.Y = &y
	}
	return clone
}
