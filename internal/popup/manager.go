package popup

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/notifd/internal/config"
	"github.com/jmylchreest/notifd/internal/event"
	"github.com/jmylchreest/notifd/internal/model"
)

// phase is the lifecycle stage of a managed popup. A popup not in the
// map is gone; duplicate closes find nothing and do nothing.
type phase int

const (
	phaseShowing phase = iota
	phaseVisible
	phaseClosing
)

// SoundPlayer plays the notification sound for a delivery. May be nil.
type SoundPlayer interface {
	Play(n model.Notification)
}

// popupState tracks one visible popup. gen disambiguates stale expiry
// timers after a replace; timers are never cancelled.
type popupState struct {
	id           uint32
	gen          uint64
	notification model.Notification
	surface      Surface
	phase        phase
	shownAt      time.Time
}

// internal loop messages from timers and surface callbacks.
type internalMsg interface{ internalMsg() }

type expiredMsg struct {
	id  uint32
	gen uint64
}
type dismissedMsg struct{ id uint32 }
type actionMsg struct {
	id  uint32
	key string
}
type closeAllMsg struct{}

func (expiredMsg) internalMsg()   {}
func (dismissedMsg) internalMsg() {}
func (actionMsg) internalMsg()    {}
func (closeAllMsg) internalMsg()  {}

// Manager is the presentation side of the daemon. It consumes server
// events, drives popup surfaces through their lifecycle, and reports
// user interaction back through the feedback queue. All popup state is
// confined to the Run goroutine.
type Manager struct {
	configFn func() *config.Config
	factory  SurfaceFactory
	sounds   SoundPlayer
	logger   *slog.Logger

	events   *event.Queue[event.ServerEvent]
	feedback *event.Queue[event.UIEvent]
	internal *event.Queue[internalMsg]

	popups map[uint32]*popupState
	order  []uint32 // arrival order, oldest first
	gen    uint64
}

// NewManager creates a Manager. events is consumed, feedback is
// produced; sounds may be nil.
func NewManager(configFn func() *config.Config, factory SurfaceFactory, sounds SoundPlayer,
	events *event.Queue[event.ServerEvent], feedback *event.Queue[event.UIEvent],
	logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		configFn: configFn,
		factory:  factory,
		sounds:   sounds,
		logger:   logger,
		events:   events,
		feedback: feedback,
		internal: event.NewQueue[internalMsg](),
		popups:   make(map[uint32]*popupState),
	}
}

// Run processes events until the server event queue closes, then tears
// down remaining popups and closes the feedback queue.
func (m *Manager) Run() {
	defer m.feedback.Close()
	defer m.internal.Close()

	for {
		select {
		case ev, ok := <-m.events.Out():
			if !ok {
				m.shutdown()
				return
			}
			m.handleServerEvent(ev)
		case msg := <-m.internal.Out():
			m.handleInternal(msg)
		}
	}
}

func (m *Manager) handleServerEvent(ev event.ServerEvent) {
	switch e := ev.(type) {
	case event.NewNotification:
		m.show(e.Notification)
	case event.CloseRequest:
		// The close signal already went out on the server side.
		m.close(e.ID, e.Reason, false)
	case event.DndChanged:
		if e.Enabled {
			m.hideForDnd()
		}
	}
}

func (m *Manager) handleInternal(msg internalMsg) {
	switch e := msg.(type) {
	case expiredMsg:
		p, ok := m.popups[e.id]
		if !ok || p.gen != e.gen || p.phase != phaseVisible {
			// Stale timer from a closed or replaced popup.
			return
		}
		m.close(e.id, model.CloseReasonExpired, true)
	case dismissedMsg:
		m.close(e.id, model.CloseReasonDismissed, true)
	case actionMsg:
		m.invokeAction(e.id, e.key)
	case closeAllMsg:
		m.closeAll()
	}
}

// show displays a notification, replacing an existing popup with the
// same id in place or evicting the oldest popup when the screen is
// full.
func (m *Manager) show(n model.Notification) {
	cfg := m.configFn()

	if p, ok := m.popups[n.ID]; ok {
		m.replace(p, n)
		return
	}

	// FIFO eviction: the oldest popup makes room for the newcomer.
	for len(m.popups) >= cfg.Display.MaxVisible && len(m.order) > 0 {
		m.close(m.order[0], model.CloseReasonExpired, true)
	}

	p := &popupState{
		id:           n.ID,
		gen:          m.nextGen(),
		notification: n,
		phase:        phaseShowing,
		shownAt:      time.Now(),
	}

	surface, err := m.factory(n, m.callbacksFor(n.ID))
	if err != nil {
		m.logger.Warn("failed to create popup surface", "id", n.ID, "error", err)
		// The notification stays tracked server-side; it just never
		// reaches the screen.
		m.feedback.Push(event.NotificationClosed{ID: n.ID, Reason: model.CloseReasonUndefined})
		return
	}
	p.surface = surface

	m.popups[n.ID] = p
	m.order = append(m.order, n.ID)

	surface.Show(len(m.order) - 1)
	p.phase = phaseVisible

	m.scheduleExpiry(p, cfg)

	if m.sounds != nil {
		m.sounds.Play(n)
	}

	m.logger.Debug("showed popup",
		"id", n.ID,
		"app_name", n.AppName,
		"urgency", n.Hints.Urgency.String(),
		"visible", len(m.popups),
	)
}

// replace swaps the content of an existing popup without changing its
// stack position. The old expiry timer is invalidated by the new gen.
func (m *Manager) replace(p *popupState, n model.Notification) {
	cfg := m.configFn()

	p.surface.Close()

	surface, err := m.factory(n, m.callbacksFor(n.ID))
	if err != nil {
		m.logger.Warn("failed to recreate popup surface on replace", "id", n.ID, "error", err)
		m.remove(n.ID)
		m.feedback.Push(event.NotificationClosed{ID: n.ID, Reason: model.CloseReasonUndefined})
		return
	}

	p.notification = n
	p.surface = surface
	p.gen = m.nextGen()
	p.phase = phaseVisible
	p.shownAt = time.Now()

	surface.Show(m.positionOf(n.ID))
	m.scheduleExpiry(p, cfg)

	m.logger.Debug("replaced popup in place", "id", n.ID)
}

// scheduleExpiry arms the auto-close timer. Resident popups and zero
// timeouts never expire.
func (m *Manager) scheduleExpiry(p *popupState, cfg *config.Config) {
	if p.notification.IsResident() {
		return
	}
	timeout := p.notification.EffectiveTimeout(cfg.TimeoutForUrgency(byte(p.notification.Hints.Urgency)))
	if timeout <= 0 {
		return
	}

	id, gen := p.id, p.gen
	time.AfterFunc(timeout, func() {
		m.internal.Push(expiredMsg{id: id, gen: gen})
	})
}

// invokeAction reports the action, then dismisses the popup unless it
// is resident. The feedback queue is FIFO, so the action always
// precedes the close for the same id.
func (m *Manager) invokeAction(id uint32, key string) {
	p, ok := m.popups[id]
	if !ok || p.phase != phaseVisible {
		return
	}

	m.feedback.Push(event.ActionInvoked{ID: id, Key: key})

	if !p.notification.IsResident() {
		m.close(id, model.CloseReasonDismissed, true)
	}
}

// close tears down one popup. When notify is set the server is told via
// the feedback queue; server-originated closes already emitted their
// signal and pass false. Unknown ids are a no-op.
func (m *Manager) close(id uint32, reason model.CloseReason, notify bool) {
	p, ok := m.popups[id]
	if !ok || p.phase == phaseClosing {
		return
	}
	p.phase = phaseClosing

	p.surface.Close()
	m.remove(id)

	if notify {
		m.feedback.Push(event.NotificationClosed{ID: id, Reason: reason})
	}

	m.reposition()

	m.logger.Debug("closed popup", "id", id, "reason", reason.String(), "visible", len(m.popups))
}

// closeAll dismisses every visible popup exactly once.
func (m *Manager) closeAll() {
	for len(m.order) > 0 {
		m.close(m.order[0], model.CloseReasonDismissed, true)
	}
}

// hideForDnd clears the screen when DnD engages, sparing popups that
// would have bypassed it.
func (m *Manager) hideForDnd() {
	ids := make([]uint32, len(m.order))
	copy(ids, m.order)
	for _, id := range ids {
		p, ok := m.popups[id]
		if !ok || p.notification.BypassesDnd() {
			continue
		}
		m.close(id, model.CloseReasonExpired, true)
	}
}

// shutdown tears down surfaces without feedback; the daemon is exiting
// and the server side is already gone.
func (m *Manager) shutdown() {
	for _, id := range m.order {
		if p, ok := m.popups[id]; ok {
			p.surface.Close()
		}
	}
	m.popups = make(map[uint32]*popupState)
	m.order = nil
}

func (m *Manager) callbacksFor(id uint32) SurfaceCallbacks {
	return SurfaceCallbacks{
		OnDismiss:  func() { m.internal.Push(dismissedMsg{id: id}) },
		OnAction:   func(key string) { m.internal.Push(actionMsg{id: id, key: key}) },
		OnCloseAll: func() { m.internal.Push(closeAllMsg{}) },
	}
}

func (m *Manager) nextGen() uint64 {
	m.gen++
	return m.gen
}

// remove drops the popup from the map and the arrival order.
func (m *Manager) remove(id uint32) {
	delete(m.popups, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// reposition reassigns stack positions by arrival order after a close.
func (m *Manager) reposition() {
	for i, id := range m.order {
		if p, ok := m.popups[id]; ok {
			p.surface.UpdatePosition(i)
		}
	}
}

func (m *Manager) positionOf(id uint32) int {
	for i, oid := range m.order {
		if oid == id {
			return i
		}
	}
	return len(m.order)
}
