package display

import (
	"log/slog"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/toaster/internal/config"
	"github.com/jmylchreest/toaster/internal/model"
)

// Popup is the layer-shell window showing a single toast.
// All methods must be called on the GTK main loop.
type Popup struct {
	window *gtk.Window
	toast  *model.Toast
	logger *slog.Logger

	box        *gtk.Box
	iconImage  *gtk.Image
	messageLbl *gtk.Label
	closeBtn   *gtk.Button

	onDismiss func()
	onHover   func(hovering bool)

	widget   *popupWidget
	shown    bool
	hidden   bool
	closed   bool
	autohide bool
	timer    *time.Timer
}

// NewPopup creates the window for t. It is not visible until Show is called.
func NewPopup(app *gtk.Application, t *model.Toast, cfg *config.Config, logger *slog.Logger) *Popup {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Popup{
		toast:  t,
		logger: logger,
	}

	p.window = gtk.NewWindow()
	p.window.SetApplication(app)
	p.window.SetDecorated(false)
	p.window.SetResizable(false)
	p.window.SetDefaultSize(cfg.Display.Width, -1)
	p.window.SetSizeRequest(cfg.Display.Width, -1)

	layershell.InitForWindow(p.window)
	layershell.SetLayer(p.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(p.window, 0)
	layershell.SetKeyboardMode(p.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(p.window, "toaster")

	p.buildUI()
	p.applyThemeClasses(cfg)
	p.connectSignals()

	return p
}

// buildUI constructs icon, message and close button.
func (p *Popup) buildUI() {
	p.box = gtk.NewBox(gtk.OrientationHorizontal, 10)
	p.box.AddCSSClass("toast")
	p.box.SetMarginTop(8)
	p.box.SetMarginBottom(8)
	p.box.SetMarginStart(12)
	p.box.SetMarginEnd(12)

	p.iconImage = gtk.NewImageFromIconName(IconName(p.toast.DisplayIcon()))
	p.iconImage.AddCSSClass("toast-icon")
	p.iconImage.SetPixelSize(24)
	p.box.Append(p.iconImage)

	p.messageLbl = gtk.NewLabel(p.toast.Message)
	p.messageLbl.AddCSSClass("toast-body")
	p.messageLbl.SetXAlign(0)
	p.messageLbl.SetWrap(true)
	p.messageLbl.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
	p.messageLbl.SetHExpand(true)
	p.box.Append(p.messageLbl)

	p.closeBtn = gtk.NewButtonFromIconName("window-close-symbolic")
	p.closeBtn.AddCSSClass("btn-close")
	p.closeBtn.SetVisible(p.toast.Persistent)
	p.box.Append(p.closeBtn)

	p.window.SetChild(p.box)
}

// applyThemeClasses adds the toast style and color scheme classes.
func (p *Popup) applyThemeClasses(cfg *config.Config) {
	p.box.AddCSSClass(colorSchemeClass(config.ColorScheme(cfg.Theme.ColorScheme)))
	if class := sanitizeClassName(p.toast.Class); class != "" {
		p.box.AddCSSClass(class)
	}
	if p.toast.Persistent {
		p.box.AddCSSClass("persistent")
	}
}

func (p *Popup) connectSignals() {
	p.closeBtn.ConnectClicked(p.dismiss)

	motionCtrl := gtk.NewEventControllerMotion()
	motionCtrl.ConnectEnter(func(x, y float64) {
		p.closeBtn.SetVisible(true)
		if p.onHover != nil {
			p.onHover(true)
		}
	})
	motionCtrl.ConnectLeave(func() {
		p.closeBtn.SetVisible(p.toast.Persistent)
		if p.onHover != nil {
			p.onHover(false)
		}
	})
	p.window.AddController(motionCtrl)

	clickCtrl := gtk.NewGestureClick()
	clickCtrl.SetButton(1)
	clickCtrl.ConnectReleased(func(nPress int, x, y float64) {
		p.dismiss()
	})
	p.window.AddController(clickCtrl)
}

func (p *Popup) dismiss() {
	if p.onDismiss != nil {
		p.onDismiss()
	}
}

// OnDismiss sets the callback run when the user closes the popup.
func (p *Popup) OnDismiss(cb func()) {
	p.onDismiss = cb
}

// OnHover sets the callback for hover state changes.
func (p *Popup) OnHover(cb func(hovering bool)) {
	p.onHover = cb
}

// Show presents the window.
func (p *Popup) Show() {
	if p.closed || p.shown {
		return
	}
	p.shown = true
	p.window.Present()
}

// Hide makes the window invisible without destroying it.
func (p *Popup) Hide() {
	p.stopTimer()
	if p.closed {
		return
	}
	p.hidden = true
	p.window.SetVisible(false)
}

// Close destroys the window.
func (p *Popup) Close() {
	p.stopTimer()
	if p.closed {
		return
	}
	p.closed = true
	p.window.Close()
}

// Visible reports whether the popup occupies a slot in the stack.
func (p *Popup) Visible() bool {
	return p.shown && !p.hidden && !p.closed
}

// Height returns the allocated window height, or 0 before the first allocation.
func (p *Popup) Height() int {
	return p.window.Height()
}

// Place anchors the window to the configured screen corner at the given offsets.
func (p *Popup) Place(pos config.Position, offsetX, offsetY int) {
	a := anchorsFor(pos)

	layershell.SetAnchor(p.window, layershell.LayerShellEdgeTop, a.top)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeBottom, a.bottom)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeLeft, a.left)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeRight, a.right)

	vertical := layershell.LayerShellEdgeBottom
	if a.top {
		vertical = layershell.LayerShellEdgeTop
	}
	layershell.SetMargin(p.window, vertical, offsetY)

	if a.left {
		layershell.SetMargin(p.window, layershell.LayerShellEdgeLeft, offsetX)
	}
	if a.right {
		layershell.SetMargin(p.window, layershell.LayerShellEdgeRight, offsetX)
	}
}

// armTimer runs expire after d unless the timer is stopped first.
// expire runs on a timer goroutine, not the GTK main loop.
func (p *Popup) armTimer(d time.Duration, expire func()) {
	p.stopTimer()
	p.timer = time.AfterFunc(d, expire)
}

func (p *Popup) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// colorSchemeClass returns "light" or "dark" based on config or system preference.
func colorSchemeClass(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	default:
		if adw.StyleManagerGetDefault().Dark() {
			return "dark"
		}
		return "light"
	}
}
