// Package display renders popup surfaces with GTK4 and layer-shell.
// Everything here runs on the GTK main loop; the presentation manager
// reaches it only through glib.IdleAdd.
package display

import (
	"log/slog"
	"strings"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/notifd/internal/config"
	"github.com/jmylchreest/notifd/internal/model"
	"github.com/jmylchreest/notifd/internal/popup"
)

// estimatedHeight approximates one popup's height for stacking offsets.
// Layer-shell margins are set before the window is measured, so an
// estimate is the only option.
const estimatedHeight = 110

// Surface is a single notification popup window.
type Surface struct {
	window       *gtk.Window
	notification model.Notification
	configFn     func() *config.Config
	callbacks    popup.SurfaceCallbacks
	logger       *slog.Logger

	position int
	closed   bool
}

// NewSurfaceFactory returns a popup.SurfaceFactory that creates GTK
// windows on the given application. Widget construction is deferred to
// the GTK main loop.
func NewSurfaceFactory(app *gtk.Application, configFn func() *config.Config, logger *slog.Logger) popup.SurfaceFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(n model.Notification, cb popup.SurfaceCallbacks) (popup.Surface, error) {
		s := &Surface{
			notification: n,
			configFn:     configFn,
			callbacks:    cb,
			logger:       logger,
		}
		glib.IdleAdd(func() {
			s.build(app)
		})
		return s, nil
	}
}

// Show presents the window at the given stack position.
func (s *Surface) Show(position int) {
	glib.IdleAdd(func() {
		if s.closed || s.window == nil {
			return
		}
		s.position = position
		s.updateAnchorPosition()
		s.window.Present()
	})
}

// UpdatePosition moves the window to a new stack position.
func (s *Surface) UpdatePosition(position int) {
	glib.IdleAdd(func() {
		if s.closed || s.window == nil {
			return
		}
		if s.position == position {
			return
		}
		s.position = position
		s.updateAnchorPosition()
	})
}

// Close destroys the window. Safe to call repeatedly.
func (s *Surface) Close() {
	glib.IdleAdd(func() {
		if s.closed {
			return
		}
		s.closed = true
		if s.window != nil {
			s.window.Close()
		}
	})
}

// build constructs the window and widgets. Runs on the GTK main loop.
func (s *Surface) build(app *gtk.Application) {
	if s.closed {
		return
	}

	cfg := s.configFn()

	s.window = gtk.NewWindow()
	s.window.SetApplication(app)
	s.window.SetDecorated(false)
	s.window.SetResizable(false)
	s.window.SetDefaultSize(cfg.Display.Width, -1)

	layershell.InitForWindow(s.window)
	layershell.SetLayer(s.window, layershell.LayerShellLayerTop)
	layershell.SetExclusiveZone(s.window, 0)
	layershell.SetKeyboardMode(s.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(s.window, "notifd-notification")

	s.window.SetChild(s.buildContent(cfg))
	s.connectSignals()
}

func (s *Surface) buildContent(cfg *config.Config) gtk.Widgetter {
	n := &s.notification

	box := gtk.NewBox(gtk.OrientationVertical, 6)
	box.AddCSSClass("notification-popup")
	box.AddCSSClass(urgencyClass(n.Hints.Urgency))
	box.SetMarginTop(8)
	box.SetMarginBottom(8)
	box.SetMarginStart(12)
	box.SetMarginEnd(12)

	header := gtk.NewBox(gtk.OrientationHorizontal, 8)
	header.AddCSSClass("notification-header")

	if cfg.Display.ShowIcons {
		icon := gtk.NewImage()
		icon.AddCSSClass("notification-icon")
		icon.SetPixelSize(48)
		if n.AppIcon != "" {
			icon.SetFromIconName(n.AppIcon)
		} else {
			icon.SetFromIconName("dialog-information")
		}
		header.Append(icon)
	}

	textBox := gtk.NewBox(gtk.OrientationVertical, 2)
	textBox.SetHExpand(true)

	summary := gtk.NewLabel(n.Summary)
	summary.AddCSSClass("notification-summary")
	summary.SetXAlign(0)
	summary.SetEllipsize(3) // PANGO_ELLIPSIZE_END
	summary.SetMaxWidthChars(40)
	textBox.Append(summary)

	if n.AppName != "" {
		appName := gtk.NewLabel(n.AppName)
		appName.AddCSSClass("notification-appname")
		appName.SetXAlign(0)
		textBox.Append(appName)
	}
	header.Append(textBox)

	closeBtn := gtk.NewButtonFromIconName("window-close-symbolic")
	closeBtn.AddCSSClass("notification-close")
	closeBtn.ConnectClicked(func() {
		if s.callbacks.OnDismiss != nil {
			s.callbacks.OnDismiss()
		}
	})
	header.Append(closeBtn)

	box.Append(header)

	if n.Body != "" {
		body := gtk.NewLabel("")
		body.AddCSSClass("notification-body")
		body.SetXAlign(0)
		body.SetWrap(true)
		body.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
		body.SetMaxWidthChars(50)
		if strings.Contains(n.Body, "<") {
			body.SetMarkup(n.Body)
		} else {
			body.SetText(n.Body)
		}
		box.Append(body)
	}

	if n.HasProgress() {
		bar := gtk.NewProgressBar()
		bar.AddCSSClass("notification-progress")
		bar.SetFraction(float64(n.Hints.Progress) / 100.0)
		box.Append(bar)
	}

	if len(n.Actions) > 0 {
		actionBox := gtk.NewBox(gtk.OrientationHorizontal, 6)
		actionBox.AddCSSClass("notification-actions")
		for _, action := range n.Actions {
			key := action.Key
			btn := gtk.NewButtonWithLabel(action.Label)
			btn.AddCSSClass("notification-action")
			btn.ConnectClicked(func() {
				if s.callbacks.OnAction != nil {
					s.callbacks.OnAction(key)
				}
			})
			actionBox.Append(btn)
		}
		box.Append(actionBox)
	}

	return box
}

func (s *Surface) connectSignals() {
	click := gtk.NewGestureClick()
	click.SetButton(0)
	click.ConnectReleased(func(nPress int, x, y float64) {
		switch click.CurrentButton() {
		case 1:
			// Left click activates the default action when present,
			// otherwise dismisses.
			if key, ok := s.defaultActionKey(); ok {
				if s.callbacks.OnAction != nil {
					s.callbacks.OnAction(key)
				}
				return
			}
			if s.callbacks.OnDismiss != nil {
				s.callbacks.OnDismiss()
			}
		case 2:
			if s.callbacks.OnCloseAll != nil {
				s.callbacks.OnCloseAll()
			}
		case 3:
			if s.callbacks.OnDismiss != nil {
				s.callbacks.OnDismiss()
			}
		}
	})
	s.window.AddController(click)
}

func (s *Surface) defaultActionKey() (string, bool) {
	for _, a := range s.notification.Actions {
		if a.Key == "default" {
			return a.Key, true
		}
	}
	return "", false
}

// updateAnchorPosition sets layer-shell anchors and margins for the
// configured screen corner and current stack position.
func (s *Surface) updateAnchorPosition() {
	cfg := s.configFn()

	offsetX := cfg.Display.OffsetX
	offsetY := cfg.Display.OffsetY + s.position*(estimatedHeight+cfg.Display.Gap)

	layershell.SetAnchor(s.window, layershell.LayerShellEdgeTop, false)
	layershell.SetAnchor(s.window, layershell.LayerShellEdgeBottom, false)
	layershell.SetAnchor(s.window, layershell.LayerShellEdgeLeft, false)
	layershell.SetAnchor(s.window, layershell.LayerShellEdgeRight, false)

	switch cfg.Display.Position {
	case "top-right":
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeTop, true)
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeRight, true)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeTop, offsetY)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeRight, offsetX)
	case "top-left":
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeTop, true)
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeTop, offsetY)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeLeft, offsetX)
	case "top-center":
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeTop, true)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeTop, offsetY)
	case "bottom-right":
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeBottom, true)
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeRight, true)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeBottom, offsetY)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeRight, offsetX)
	case "bottom-left":
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeBottom, true)
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeBottom, offsetY)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeLeft, offsetX)
	case "bottom-center":
		layershell.SetAnchor(s.window, layershell.LayerShellEdgeBottom, true)
		layershell.SetMargin(s.window, layershell.LayerShellEdgeBottom, offsetY)
	}
}

// urgencyClass converts an urgency level to its CSS class name.
func urgencyClass(u model.Urgency) string {
	switch u {
	case model.UrgencyLow:
		return "urgency-low"
	case model.UrgencyCritical:
		return "urgency-critical"
	default:
		return "urgency-normal"
	}
}
