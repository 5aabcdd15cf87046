// Package model defines the toast record shared by the queue, the manager and the renderers.
package model

import (
	"math/rand/v2"
	"strconv"
)

// ElementIDPrefix is prepended to a toast ID to form the identifier of its rendered element.
const ElementIDPrefix = "liveToast-"

// Toast classes with a dedicated icon.
const (
	ClassSuccess = "success-subtle"
	ClassWarning = "warning-subtle"
	ClassDanger  = "danger-subtle"
)

// Icon identifiers resolved from toast classes.
const (
	IconCheck   = "fas fa-check"
	IconWarning = "fas fa-triangle-exclamation"
	IconXMark   = "fas fa-xmark"
)

// Toast is the view-model for a single on-screen toast.
// Toasts are always handled by pointer: the queue identifies them by identity,
// so two toasts with the same text are still distinct.
type Toast struct {
	ID         uint64 `json:"id"`
	Message    string `json:"message"`
	Class      string `json:"toast_class"`
	Icon       string `json:"icon,omitempty"`
	Persistent bool   `json:"persistent,omitempty"`
}

// NewID returns a random toast ID.
// Collisions are not guarded against; toasts are short-lived and few.
func NewID() uint64 {
	return rand.Uint64()
}

// NewToast creates a toast with a fresh ID. The icon is left empty.
func NewToast(message, class string) *Toast {
	return &Toast{
		ID:      NewID(),
		Message: message,
		Class:   class,
	}
}

// ElementID returns the identifier of the element rendered for the toast with the given ID.
func ElementID(id uint64) string {
	return ElementIDPrefix + strconv.FormatUint(id, 10)
}

// ElementID returns the identifier of the element rendered for t.
func (t *Toast) ElementID() string {
	return ElementID(t.ID)
}

// DisplayIcon returns the explicit icon if set, otherwise the icon for the toast class.
func (t *Toast) DisplayIcon() string {
	if t.Icon != "" {
		return t.Icon
	}
	return ResolveIcon(t.Class)
}

// ResolveIcon maps a toast class to its icon identifier.
// Unknown and empty classes have no icon.
func ResolveIcon(class string) string {
	switch class {
	case ClassSuccess:
		return IconCheck
	case ClassWarning:
		return IconWarning
	case ClassDanger:
		return IconXMark
	default:
		return ""
	}
}
