// Package toast implements the toast queue manager: it queues toasts, waits for the
// renderer to materialise them, shows them through a widget and drops them from the
// queue once the widget reports they were hidden.
package toast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/model"
	"github.com/jmylchreest/toaster/internal/store"
)

// Document looks up rendered elements by ID.
type Document interface {
	GetElementByID(id string) (*dom.Element, error)
}

// Widget animates a rendered toast element in and out of view.
// Hide must set dom.AttrHideReason and dispatch dom.EventHidden on the element once hidden.
type Widget interface {
	Show()
	Hide(reason string)
}

// WidgetFactory returns the widget bound to an element, creating it on first use.
type WidgetFactory interface {
	GetOrCreateInstance(el *dom.Element) (Widget, error)
}

// ShowHook is called after a toast has been shown.
type ShowHook func(t *model.Toast)

// HiddenHook is called after a toast was hidden and removed from the queue.
type HiddenHook func(t *model.Toast, reason string)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithShowHook registers a hook run after every toast is shown.
func WithShowHook(hook ShowHook) Option {
	return func(m *Manager) {
		m.onShow = append(m.onShow, hook)
	}
}

// WithHiddenHook registers a hook run after every toast is hidden.
func WithHiddenHook(hook HiddenHook) Option {
	return func(m *Manager) {
		m.onHidden = append(m.onHidden, hook)
	}
}

// Manager owns the toast lifecycle on top of a shared queue.
type Manager struct {
	queue   *store.Queue
	doc     Document
	widgets WidgetFactory
	logger  *slog.Logger

	onShow   []ShowHook
	onHidden []HiddenHook
}

// NewManager creates a manager. The renderer owning doc and widgets must acknowledge
// render passes on queue, otherwise submissions block until their context is done.
func NewManager(queue *store.Queue, doc Document, widgets WidgetFactory, opts ...Option) *Manager {
	m := &Manager{
		queue:   queue,
		doc:     doc,
		widgets: widgets,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Queue returns the shared queue for renderers to observe.
func (m *Manager) Queue() *store.Queue {
	return m.queue
}

// SubmitFromResponse decodes a toast from resp and displays it.
// A *DecodeError is returned, and nothing is queued, when the body is not a toast payload.
func (m *Manager) SubmitFromResponse(ctx context.Context, resp *http.Response) error {
	t, err := BuildFromResponse(resp)
	if err != nil {
		return err
	}
	return m.display(ctx, t)
}

// BuildFromResponse decodes a toast from resp without queueing it.
func (m *Manager) BuildFromResponse(resp *http.Response) (*model.Toast, error) {
	return BuildFromResponse(resp)
}

// SubmitPrebuilt queues and displays an existing toast.
func (m *Manager) SubmitPrebuilt(ctx context.Context, t *model.Toast) error {
	return m.display(ctx, t)
}

// SubmitMessage builds a toast from text and displays it.
// When icon is empty it is resolved from style.
func (m *Manager) SubmitMessage(ctx context.Context, text, style string, persistent bool, icon string) error {
	return m.display(ctx, NewMessage(text, style, persistent, icon))
}

// NewMessage builds the toast SubmitMessage would display, for callers that need to
// keep a handle on it.
func NewMessage(text, style string, persistent bool, icon string) *model.Toast {
	if icon == "" {
		icon = model.ResolveIcon(style)
	}
	return &model.Toast{
		ID:         model.NewID(),
		Message:    text,
		Class:      style,
		Icon:       icon,
		Persistent: persistent,
	}
}

// Dismiss asks the widget bound to t to hide it. The hidden event then removes t from
// the queue. A toast whose element is not mounted yet is removed directly and never
// shown. Dismissing a toast that is no longer queued is a no-op.
func (m *Manager) Dismiss(t *model.Toast) error {
	if !m.queue.Contains(t) {
		return nil
	}

	el, err := m.doc.GetElementByID(t.ElementID())
	if errors.Is(err, dom.ErrElementNotFound) {
		m.finish(t, dom.ReasonClosed)
		return nil
	}
	if err != nil {
		return &DisplayError{ToastID: t.ID, ElementID: t.ElementID(), Message: "element lookup failed", Cause: err}
	}
	w, err := m.widgets.GetOrCreateInstance(el)
	if err != nil {
		return &DisplayError{ToastID: t.ID, ElementID: el.ID(), Message: "widget unavailable", Cause: err}
	}

	w.Hide(dom.ReasonClosed)
	return nil
}

// DismissAll dismisses every queued toast.
func (m *Manager) DismissAll() {
	for _, t := range m.queue.Items() {
		if err := m.Dismiss(t); err != nil {
			m.logger.Warn("failed to dismiss toast", "toast_id", t.ID, "error", err)
		}
	}
}

// display runs the append, render wait, show and hidden-registration sequence for t.
// Failures are contained to t: it is removed from the queue and the error returned.
func (m *Manager) display(ctx context.Context, t *model.Toast) (err error) {
	version := m.queue.Append(t)

	if err := m.queue.WaitRendered(ctx, version); err != nil {
		m.queue.Remove(t)
		return fmt.Errorf("waiting for toast %d to render: %w", t.ID, err)
	}
	if !m.queue.Contains(t) {
		m.logger.Debug("toast dismissed before it was shown", "toast_id", t.ID)
		return nil
	}

	elementID := t.ElementID()

	defer func() {
		if r := recover(); r != nil {
			err = &DisplayError{ToastID: t.ID, ElementID: elementID, Message: fmt.Sprintf("widget panicked: %v", r)}
		}
		if err != nil {
			m.queue.Remove(t)
			m.logger.Error("failed to display toast", "toast_id", t.ID, "element_id", elementID, "error", err)
		}
	}()

	el, err := m.doc.GetElementByID(elementID)
	if err != nil {
		return &DisplayError{ToastID: t.ID, ElementID: elementID, Message: "element lookup failed", Cause: err}
	}

	if t.Persistent {
		el.SetAttribute(dom.AttrAutohide, "false")
	}

	w, err := m.widgets.GetOrCreateInstance(el)
	if err != nil {
		return &DisplayError{ToastID: t.ID, ElementID: elementID, Message: "widget unavailable", Cause: err}
	}

	el.AddEventListener(dom.EventHidden, func() {
		m.handleHidden(t, el)
	}, dom.Once())

	w.Show()

	m.logger.Debug("showed toast",
		"toast_id", t.ID,
		"class", t.Class,
		"persistent", t.Persistent,
		"queue_len", m.queue.Len(),
	)

	for _, hook := range m.onShow {
		m.runHook(t, func() { hook(t) })
	}

	return nil
}

// runHook isolates hook failures from the toast lifecycle.
func (m *Manager) runHook(t *model.Toast, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("toast hook panicked", "toast_id", t.ID, "panic", r)
		}
	}()
	fn()
}

// handleHidden removes t from the queue once its widget reports it was hidden.
func (m *Manager) handleHidden(t *model.Toast, el *dom.Element) {
	reason, _ := el.Attribute(dom.AttrHideReason)
	if reason == "" {
		reason = dom.ReasonDismissed
	}
	m.finish(t, reason)
}

// finish removes t and runs the hidden hooks, once per toast.
func (m *Manager) finish(t *model.Toast, reason string) {
	if !m.queue.Remove(t) {
		return
	}

	m.logger.Debug("toast hidden", "toast_id", t.ID, "reason", reason, "queue_len", m.queue.Len())

	for _, hook := range m.onHidden {
		m.runHook(t, func() { hook(t, reason) })
	}
}
