// Package dom provides the element registry renderers mount toast elements into.
// Elements carry attributes and named events, mirroring the small part of a browser
// DOM the toast manager relies on.
package dom

import (
	"sync"
)

// Event names dispatched on toast elements.
const (
	EventShown  = "shown"
	EventHidden = "hidden"
)

// Element attributes understood by the renderers.
const (
	// AttrAutohide set to "false" disables automatic hiding.
	AttrAutohide = "data-bs-autohide"
	// AttrHideReason records why the element was hidden.
	AttrHideReason = "data-hide-reason"
)

// Hide reasons stored in AttrHideReason.
const (
	ReasonExpired   = "expired"
	ReasonDismissed = "dismissed"
	ReasonClosed    = "closed"
)

// ListenerOption configures an event listener.
type ListenerOption func(*listener)

// Once removes the listener after its first invocation.
func Once() ListenerOption {
	return func(l *listener) {
		l.once = true
	}
}

type listener struct {
	fn   func()
	once bool
}

// Element is a renderer-owned node identified by a unique ID.
type Element struct {
	id string

	mu        sync.Mutex
	attrs     map[string]string
	listeners map[string][]*listener
}

// NewElement creates an element with the given ID.
func NewElement(id string) *Element {
	return &Element{
		id:        id,
		attrs:     make(map[string]string),
		listeners: make(map[string][]*listener),
	}
}

// ID returns the element identifier.
func (e *Element) ID() string {
	return e.id
}

// SetAttribute sets an attribute value.
func (e *Element) SetAttribute(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

// Attribute returns an attribute value and whether it is set.
func (e *Element) Attribute(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok
}

// RemoveAttribute deletes an attribute.
func (e *Element) RemoveAttribute(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.attrs, name)
}

// Autohide reports whether the element should hide itself after the configured delay.
func (e *Element) Autohide() bool {
	v, ok := e.Attribute(AttrAutohide)
	return !ok || v != "false"
}

// AddEventListener registers fn for the named event.
func (e *Element) AddEventListener(event string, fn func(), opts ...ListenerOption) {
	l := &listener{fn: fn}
	for _, opt := range opts {
		opt(l)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], l)
}

// ListenerCount returns the number of listeners registered for event.
func (e *Element) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// Dispatch invokes the listeners registered for event in registration order and
// returns how many ran. One-shot listeners are removed before they are invoked,
// so a listener that dispatches the same event again cannot run twice.
func (e *Element) Dispatch(event string) int {
	e.mu.Lock()
	registered := e.listeners[event]
	kept := registered[:0:0]
	for _, l := range registered {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, event)
	} else {
		e.listeners[event] = kept
	}
	e.mu.Unlock()

	for _, l := range registered {
		l.fn()
	}
	return len(registered)
}
