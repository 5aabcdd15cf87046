package dbus

import (
	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/model"
)

// Urgency levels from the hints dictionary.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// HintClass names the hint carrying an explicit toast style.
const HintClass = "x-toaster-class"

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved by the notification protocol.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// CloseReasonFor maps a toast hide reason to its close reason.
func CloseReasonFor(hideReason string) CloseReason {
	switch hideReason {
	case dom.ReasonExpired:
		return CloseReasonExpired
	case dom.ReasonDismissed:
		return CloseReasonDismissed
	case dom.ReasonClosed:
		return CloseReasonClosed
	default:
		return CloseReasonUndefined
	}
}

// Notification represents an incoming Notify call.
// It contains the raw parameters from the org.freedesktop.Notifications.Notify method.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *Notification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return UrgencyNormal
}

// Resident returns true if the resident hint is set.
func (n *Notification) Resident() bool {
	if v, ok := n.Hints["resident"]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// ClassHint extracts the x-toaster-class hint.
func (n *Notification) ClassHint() string {
	if v, ok := n.Hints[HintClass]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// ToastClass returns the toast style: the class hint when present, danger for
// critical urgency, otherwise no style.
func (n *Notification) ToastClass() string {
	if class := n.ClassHint(); class != "" {
		return class
	}
	if n.Urgency() == UrgencyCritical {
		return model.ClassDanger
	}
	return ""
}

// Persistent reports whether the toast should stay until dismissed.
func (n *Notification) Persistent() bool {
	return n.ExpireTimeout == 0 || n.Resident() || n.Urgency() == UrgencyCritical
}

// Message returns the toast text.
func (n *Notification) Message() string {
	if n.Body == "" {
		return n.Summary
	}
	if n.Summary == "" {
		return n.Body
	}
	return n.Summary + ": " + n.Body
}

// ServerCapabilities lists the capabilities advertised by toasterd.
var ServerCapabilities = []string{
	"body",        // Support body text
	"icon-static", // Support static icons
	"persistence", // Toasts can stay until dismissed
	"sound",       // Play sounds
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string // "toasterd"
	Vendor      string // "toaster"
	Version     string // Build version
	SpecVersion string // "1.2"
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "toasterd",
		Vendor:      "toaster",
		Version:     "0.0.1", // Will be replaced by build-time version
		SpecVersion: "1.2",
	}
}
