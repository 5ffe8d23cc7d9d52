// Package event defines the messages exchanged between the protocol
// server and the presentation manager, and the queues that carry them.
// Events hold copies only; no shared mutable state crosses a queue.
package event

import "github.com/jmylchreest/notifd/internal/model"

// ServerEvent is a message from the protocol server to the presentation
// manager.
type ServerEvent interface{ serverEvent() }

// NewNotification asks the presentation manager to show a notification.
type NewNotification struct {
	Notification model.Notification
}

// CloseRequest asks the presentation manager to tear down the popup for
// the given id. The close signal for this id has already been emitted;
// no feedback is expected.
type CloseRequest struct {
	ID     uint32
	Reason model.CloseReason
}

// DndChanged informs the presentation manager that Do Not Disturb
// toggled.
type DndChanged struct {
	Enabled bool
}

func (NewNotification) serverEvent() {}
func (CloseRequest) serverEvent()    {}
func (DndChanged) serverEvent()      {}

// UIEvent is a feedback message from the presentation manager to the
// protocol server.
type UIEvent interface{ uiEvent() }

// ActionInvoked reports that the user activated an action button.
type ActionInvoked struct {
	ID  uint32
	Key string
}

// NotificationClosed reports that a popup was removed and why.
type NotificationClosed struct {
	ID     uint32
	Reason model.CloseReason
}

func (ActionInvoked) uiEvent()      {}
func (NotificationClosed) uiEvent() {}
