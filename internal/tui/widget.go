package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/toast"
)

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

type showMsg struct {
	elementID string
}

type hideMsg struct {
	elementID string
	reason    string
}

// WidgetFactory hands out terminal widgets. Widgets post show and hide requests to the
// program, so calls from any goroutine other than the program's own are safe.
type WidgetFactory struct {
	mu      sync.RWMutex
	sender  Sender
	widgets map[string]*widget
}

// NewWidgetFactory creates an unbound factory. Bind it before toasts are submitted.
func NewWidgetFactory() *WidgetFactory {
	return &WidgetFactory{widgets: make(map[string]*widget)}
}

// Bind sets the program that widgets post to.
func (f *WidgetFactory) Bind(s Sender) {
	f.mu.Lock()
	f.sender = s
	f.mu.Unlock()
}

// GetOrCreateInstance returns the widget bound to el.
func (f *WidgetFactory) GetOrCreateInstance(el *dom.Element) (toast.Widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.widgets[el.ID()]
	if !ok {
		w = &widget{factory: f, elementID: el.ID()}
		f.widgets[el.ID()] = w
	}
	return w, nil
}

// release forgets the widget of an unmounted element.
func (f *WidgetFactory) release(elementID string) {
	f.mu.Lock()
	delete(f.widgets, elementID)
	f.mu.Unlock()
}

func (f *WidgetFactory) send(msg tea.Msg) {
	f.mu.RLock()
	s := f.sender
	f.mu.RUnlock()
	if s != nil {
		s.Send(msg)
	}
}

type widget struct {
	factory   *WidgetFactory
	elementID string
}

func (w *widget) Show() {
	w.factory.send(showMsg{elementID: w.elementID})
}

func (w *widget) Hide(reason string) {
	w.factory.send(hideMsg{elementID: w.elementID, reason: reason})
}
