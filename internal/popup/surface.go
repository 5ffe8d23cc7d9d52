// Package popup implements the presentation manager. It owns every
// visible popup and runs as a single goroutine; surfaces and timers
// report back through its event loop, never directly.
package popup

import "github.com/jmylchreest/notifd/internal/model"

// Surface is one on-screen popup window. Implementations marshal onto
// their own UI thread; the manager never waits on them.
type Surface interface {
	// Show makes the surface visible at the given stack position.
	Show(position int)

	// UpdatePosition moves the surface to a new stack position after
	// neighbors close.
	UpdatePosition(position int)

	// Close destroys the surface. Must tolerate repeated calls.
	Close()
}

// SurfaceCallbacks carries user interaction out of a surface. All
// callbacks may be invoked from the UI thread and must not block.
type SurfaceCallbacks struct {
	// OnDismiss fires when the user dismisses the popup.
	OnDismiss func()

	// OnAction fires when the user activates an action button.
	OnAction func(key string)

	// OnCloseAll fires when the user requests closing every popup.
	OnCloseAll func()
}

// SurfaceFactory creates a surface for a notification. The factory is
// the manager's only coupling to the rendering layer.
type SurfaceFactory func(n model.Notification, cb SurfaceCallbacks) (Surface, error)
