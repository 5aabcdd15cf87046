package display

import (
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/toaster/internal/config"
	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/store"
	"github.com/jmylchreest/toaster/internal/toast"
)

// Renderer keeps one popup per queued toast and acknowledges every render pass.
// It is both the manager's Document owner and its WidgetFactory.
type Renderer struct {
	app    *gtk.Application
	queue  *store.Queue
	doc    *dom.Document
	logger *slog.Logger

	mu      sync.Mutex
	cfg     *config.Config
	popups  map[string]*Popup // Keyed by element ID
	order   []string          // Element IDs in queue order
	changes <-chan store.ChangeEvent
	stopped bool
}

// NewRenderer creates a renderer drawing queue into popups owned by app.
func NewRenderer(app *gtk.Application, queue *store.Queue, doc *dom.Document, cfg *config.Config, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Renderer{
		app:    app,
		queue:  queue,
		doc:    doc,
		cfg:    cfg,
		logger: logger,
		popups: make(map[string]*Popup),
	}
}

// Start subscribes to the queue. Must be called on the GTK main loop.
func (r *Renderer) Start() error {
	if gdk.DisplayGetDefault() == nil {
		return &DisplayError{Message: "no display available"}
	}

	changes := r.queue.Subscribe()
	r.mu.Lock()
	r.changes = changes
	r.mu.Unlock()

	go func() {
		for range changes {
			glib.IdleAdd(r.renderPass)
		}
	}()

	// Pick up toasts queued before the subscription.
	r.renderPass()

	r.logger.Info("display renderer started")
	return nil
}

// Stop unsubscribes from the queue and closes every popup. Must be called on the GTK main loop.
func (r *Renderer) Stop() {
	r.mu.Lock()
	changes := r.changes
	r.changes = nil
	r.stopped = true
	popups := r.popups
	r.popups = make(map[string]*Popup)
	r.order = nil
	r.mu.Unlock()

	if changes != nil {
		r.queue.Unsubscribe(changes)
	}
	for id, p := range popups {
		p.Close()
		r.doc.Unmount(id)
	}

	r.logger.Info("display renderer stopped")
}

// GetOrCreateInstance returns the widget bound to el's popup.
func (r *Renderer) GetOrCreateInstance(el *dom.Element) (toast.Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.popups[el.ID()]
	if !ok {
		return nil, &DisplayError{Message: "no popup for element " + el.ID()}
	}
	if p.widget == nil {
		p.widget = &popupWidget{renderer: r, elementID: el.ID()}
	}
	return p.widget, nil
}

// UpdateConfig applies reloaded display settings to existing popups.
// Must be called on the GTK main loop.
func (r *Renderer) UpdateConfig(cfg *config.Config) {
	r.mu.Lock()
	r.cfg = cfg
	for _, p := range r.popups {
		p.window.SetSizeRequest(cfg.Display.Width, -1)
	}
	r.mu.Unlock()

	r.logger.Debug("display renderer config updated",
		"position", cfg.Display.Position,
		"width", cfg.Display.Width,
	)
	r.restack()
}

// renderPass reconciles popups with the queue and acknowledges the pass.
func (r *Renderer) renderPass() {
	items, version := r.queue.Snapshot()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	cfg := r.cfg

	live := make(map[string]bool, len(items))
	order := make([]string, 0, len(items))
	for _, t := range items {
		id := t.ElementID()
		live[id] = true
		order = append(order, id)
		if _, ok := r.popups[id]; ok {
			continue
		}

		p := NewPopup(r.app, t, cfg, r.logger)
		p.OnDismiss(func() { r.hide(id, dom.ReasonDismissed) })
		p.OnHover(func(hovering bool) { r.hover(id, hovering) })
		r.popups[id] = p
		r.doc.Mount(dom.NewElement(id))
	}

	var closed []*Popup
	for id, p := range r.popups {
		if live[id] {
			continue
		}
		closed = append(closed, p)
		delete(r.popups, id)
		r.doc.Unmount(id)
	}
	r.order = order
	r.mu.Unlock()

	for _, p := range closed {
		p.Close()
	}
	r.restack()

	r.queue.MarkRendered(version)
	r.logger.Debug("render pass", "version", version, "toasts", len(items), "closed", len(closed))
}

// restack positions visible popups in queue order.
func (r *Renderer) restack() {
	r.mu.Lock()
	cfg := r.cfg
	visible := make([]*Popup, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.popups[id]; ok && p.Visible() {
			visible = append(visible, p)
		}
	}
	r.mu.Unlock()

	heights := make([]int, len(visible))
	for i, p := range visible {
		heights[i] = p.Height()
	}
	offsets := stackOffsets(heights, cfg.Display.OffsetY, cfg.Display.Gap)
	for i, p := range visible {
		p.Place(config.Position(cfg.Display.Position), cfg.Display.OffsetX, offsets[i])
	}
}

func (r *Renderer) lookup(id string) (*Popup, *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.popups[id], r.cfg
}

// show presents the popup and arms autohide unless the element disables it.
func (r *Renderer) show(id string) {
	p, cfg := r.lookup(id)
	if p == nil {
		return
	}
	el, err := r.doc.GetElementByID(id)
	if err != nil {
		r.logger.Warn("showing popup without element", "element_id", id, "error", err)
		return
	}

	p.Show()
	r.restack()

	p.autohide = el.Autohide()
	if p.autohide {
		r.arm(id, p, cfg)
	}
}

func (r *Renderer) arm(id string, p *Popup, cfg *config.Config) {
	p.armTimer(cfg.Timeouts.Autohide.Duration(), func() {
		glib.IdleAdd(func() { r.hide(id, dom.ReasonExpired) })
	})
}

// hover pauses autohide while the pointer is over the popup.
func (r *Renderer) hover(id string, hovering bool) {
	p, cfg := r.lookup(id)
	if p == nil || !p.autohide || !p.Visible() {
		return
	}
	if hovering {
		p.stopTimer()
		return
	}
	r.arm(id, p, cfg)
}

// hide hides the popup and reports the hidden event on its element.
func (r *Renderer) hide(id, reason string) {
	p, _ := r.lookup(id)
	if p == nil || p.hidden {
		return
	}
	p.Hide()
	r.restack()

	el, err := r.doc.GetElementByID(id)
	if err != nil {
		return
	}
	el.SetAttribute(dom.AttrHideReason, reason)
	el.Dispatch(dom.EventHidden)
}

// popupWidget marshals widget calls from submitters onto the GTK main loop.
type popupWidget struct {
	renderer  *Renderer
	elementID string
}

func (w *popupWidget) Show() {
	glib.IdleAdd(func() { w.renderer.show(w.elementID) })
}

func (w *popupWidget) Hide(reason string) {
	glib.IdleAdd(func() { w.renderer.hide(w.elementID, reason) })
}

// DisplayError represents a display-related error.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
