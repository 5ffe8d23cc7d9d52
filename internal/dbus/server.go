// Package dbus implements the org.freedesktop.Notifications D-Bus
// interface.
package dbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/notifd/internal/config"
	"github.com/jmylchreest/notifd/internal/event"
	"github.com/jmylchreest/notifd/internal/history"
	"github.com/jmylchreest/notifd/internal/model"
	"github.com/jmylchreest/notifd/internal/state"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusBusName is the bus name to claim.
	DBusBusName = "org.freedesktop.Notifications"
)

// ConfigFunc returns the current configuration. The daemon swaps the
// underlying config on hot reload; the server always reads through
// this.
type ConfigFunc func() *config.Config

// Server implements the org.freedesktop.Notifications D-Bus interface
// and owns the delivery decision for every incoming notification.
type Server struct {
	conn   *dbus.Conn
	logger *slog.Logger

	nextID atomic.Uint32

	configFn ConfigFunc
	state    *state.ServerState
	history  *history.Store
	events   *event.Queue[event.ServerEvent]

	mu         sync.Mutex
	serverInfo ServerInfo
	running    bool
}

// NewServer creates a Server. The events queue carries delivery
// requests to the presentation manager; history may be nil to disable
// persistence.
func NewServer(configFn ConfigFunc, st *state.ServerState, hist *history.Store,
	events *event.Queue[event.ServerEvent], logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:     logger,
		configFn:   configFn,
		state:      st,
		history:    hist,
		events:     events,
		serverInfo: DefaultServerInfo(),
	}
}

// SetServerInfo sets the tuple returned by GetServerInformation.
func (s *Server) SetServerInfo(info ServerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverInfo = info
}

// Start connects to the session bus, exports the notification service,
// and claims the bus name.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: notificationMethods(),
				Signals: notificationSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus notification server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name. The session bus connection is shared and
// stays open.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
	}

	s.logger.Info("D-Bus notification server stopped")
	return nil
}

// GetCapabilities returns the list of capabilities supported by this
// server.
// D-Bus method: GetCapabilities() -> as
func (s *Server) GetCapabilities() ([]string, *dbus.Error) {
	s.logger.Debug("GetCapabilities called")
	return ServerCapabilities, nil
}

// GetServerInformation returns information about the notification
// server.
// D-Bus method: GetServerInformation() -> (ssss)
func (s *Server) GetServerInformation() (string, string, string, string, *dbus.Error) {
	s.logger.Debug("GetServerInformation called")
	s.mu.Lock()
	info := s.serverInfo
	s.mu.Unlock()
	return info.Name, info.Vendor, info.Version, info.SpecVersion, nil
}

// Notify handles an incoming notification request.
// D-Bus method: Notify(susssasa{sv}i) -> u
func (s *Server) Notify(
	appName string,
	replacesID uint32,
	appIcon string,
	summary string,
	body string,
	actions []string,
	hints map[string]dbus.Variant,
	expireTimeout int32,
) (uint32, *dbus.Error) {
	cfg := s.configFn()

	// Disabled apps are rejected before any state is touched. The zero
	// id is never allocated, so senders can detect the rejection.
	if !cfg.IsAppAllowed(appName) {
		s.logger.Debug("notification rejected by app policy", "app_name", appName)
		return 0, nil
	}

	var id uint32
	if replacesID > 0 {
		id = replacesID
	} else {
		id = s.nextID.Add(1)
	}

	n := model.New(id, appName, replacesID, appIcon, summary, body, actions, hints, expireTimeout)

	s.logger.Debug("Notify called",
		"app_name", appName,
		"replaces_id", replacesID,
		"summary", summary,
		"urgency", n.Hints.Urgency.String(),
		"id", id,
	)

	// History is best-effort and never fails the call.
	if s.history != nil && !n.IsTransient() {
		if err := s.history.Append(n); err != nil {
			s.logger.Warn("failed to append to history", "id", id, "error", err)
		}
	}

	// Suppressed notifications are still tracked so a later
	// CloseNotification or history query can find them.
	s.state.Insert(n)

	if s.eligible(&n, cfg) {
		s.events.Push(event.NewNotification{Notification: n.Clone()})
	} else {
		s.logger.Debug("notification suppressed by DnD", "id", id, "app_name", appName)
	}

	return id, nil
}

// eligible decides whether the notification reaches the screen now.
func (s *Server) eligible(n *model.Notification, cfg *config.Config) bool {
	if !s.state.DndActive() {
		return true
	}
	return n.BypassesDnd() || cfg.IsPriorityApp(n.AppName)
}

// CloseNotification closes a notification by id.
// D-Bus method: CloseNotification(u) -> nothing
func (s *Server) CloseNotification(id uint32) *dbus.Error {
	s.logger.Debug("CloseNotification called", "id", id)

	s.state.Remove(id)

	// The signal goes out here; the presentation side tears down the
	// popup without reporting back, so exactly one signal is emitted
	// per id. Unknown ids still get the signal.
	if err := s.EmitNotificationClosed(id, model.CloseReasonClosed); err != nil {
		s.logger.Warn("failed to emit NotificationClosed signal", "id", id, "error", err)
	}

	s.events.Push(event.CloseRequest{ID: id, Reason: model.CloseReasonClosed})
	return nil
}

// NotifyInternal injects a daemon-originated notification through the
// normal delivery path, bypassing the wire but not the policy.
func (s *Server) NotifyInternal(appName, summary, body string, urgency model.Urgency, expireTimeout int32) uint32 {
	hints := map[string]dbus.Variant{
		"urgency":   dbus.MakeVariant(byte(urgency)),
		"transient": dbus.MakeVariant(true),
	}
	id, _ := s.Notify(appName, 0, "", summary, body, nil, hints, expireTimeout)
	return id
}

// SetDnd updates the effective Do Not Disturb flag and informs the
// presentation manager when it changed.
func (s *Server) SetDnd(enabled bool) {
	if !s.state.SetDnd(enabled) {
		return
	}
	s.logger.Info("DnD state changed", "enabled", enabled)
	s.events.Push(event.DndChanged{Enabled: enabled})
}

// RunFeedback consumes presentation feedback until the queue closes.
// ActionInvoked precedes NotificationClosed for the same id because the
// queue is FIFO and this is the only consumer.
func (s *Server) RunFeedback(feedback *event.Queue[event.UIEvent]) {
	for ev := range feedback.Out() {
		switch e := ev.(type) {
		case event.ActionInvoked:
			if err := s.EmitActionInvoked(e.ID, e.Key); err != nil {
				s.logger.Warn("failed to emit ActionInvoked signal", "id", e.ID, "error", err)
			}
		case event.NotificationClosed:
			s.state.Remove(e.ID)
			if err := s.EmitNotificationClosed(e.ID, e.Reason); err != nil {
				s.logger.Warn("failed to emit NotificationClosed signal", "id", e.ID, "error", err)
			}
		}
	}
}

// notificationMethods returns the D-Bus method introspection data.
func notificationMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetCapabilities",
			Args: []introspect.Arg{
				{Name: "capabilities", Type: "as", Direction: "out"},
			},
		},
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
				{Name: "spec_version", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Notify",
			Args: []introspect.Arg{
				{Name: "app_name", Type: "s", Direction: "in"},
				{Name: "replaces_id", Type: "u", Direction: "in"},
				{Name: "app_icon", Type: "s", Direction: "in"},
				{Name: "summary", Type: "s", Direction: "in"},
				{Name: "body", Type: "s", Direction: "in"},
				{Name: "actions", Type: "as", Direction: "in"},
				{Name: "hints", Type: "a{sv}", Direction: "in"},
				{Name: "expire_timeout", Type: "i", Direction: "in"},
				{Name: "id", Type: "u", Direction: "out"},
			},
		},
		{
			Name: "CloseNotification",
			Args: []introspect.Arg{
				{Name: "id", Type: "u", Direction: "in"},
			},
		},
	}
}

// notificationSignals returns the D-Bus signal introspection data.
func notificationSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "NotificationClosed",
			Args: []introspect.Arg{
				{Name: "id", Type: "u"},
				{Name: "reason", Type: "u"},
			},
		},
		{
			Name: "ActionInvoked",
			Args: []introspect.Arg{
				{Name: "id", Type: "u"},
				{Name: "action_key", Type: "s"},
			},
		},
	}
}
