package display

import (
	"strings"

	"github.com/jmylchreest/toaster/internal/model"
)

// IconName maps a toast icon identifier to a GTK icon name.
// Identifiers without a mapping are assumed to already be icon names.
func IconName(icon string) string {
	switch icon {
	case model.IconCheck:
		return "object-select-symbolic"
	case model.IconWarning:
		return "dialog-warning-symbolic"
	case model.IconXMark:
		return "dialog-error-symbolic"
	case "":
		return "dialog-information-symbolic"
	default:
		return icon
	}
}

// sanitizeClassName converts a string to a valid CSS class name.
// Replaces spaces and special characters with hyphens, lowercases.
func sanitizeClassName(name string) string {
	var result strings.Builder
	prevHyphen := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			result.WriteRune(r)
			prevHyphen = false
		case r == '-' || r == '_' || r == ' ' || r == '.' || r == '/':
			if !prevHyphen && result.Len() > 0 {
				result.WriteRune('-')
				prevHyphen = true
			}
		}
	}

	return strings.TrimSuffix(result.String(), "-")
}
