package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/toaster/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Padding(0, 1)

	toastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
)

// classColor returns the accent colour for a toast style.
func classColor(class string) lipgloss.Color {
	switch class {
	case model.ClassSuccess:
		return lipgloss.Color("10")
	case model.ClassWarning:
		return lipgloss.Color("11")
	case model.ClassDanger:
		return lipgloss.Color("9")
	default:
		return lipgloss.Color("7")
	}
}

// iconGlyph maps icon identifiers to terminal glyphs.
func iconGlyph(icon string) string {
	switch icon {
	case model.IconCheck:
		return "✓"
	case model.IconWarning:
		return "⚠"
	case model.IconXMark:
		return "✗"
	case "":
		return ""
	default:
		return "•"
	}
}
