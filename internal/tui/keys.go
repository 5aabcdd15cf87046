package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Composing
	Submit           key.Binding
	CycleStyle       key.Binding
	TogglePersistent key.Binding

	// Toasts
	DismissNewest key.Binding
	DismissAll    key.Binding

	// Global
	Quit key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.CycleStyle, k.TogglePersistent, k.DismissNewest, k.DismissAll, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.CycleStyle, k.TogglePersistent},
		{k.DismissNewest, k.DismissAll, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "toast"),
		),
		CycleStyle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "style"),
		),
		TogglePersistent: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "persistent"),
		),
		DismissNewest: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "dismiss"),
		),
		DismissAll: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "dismiss all"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}
