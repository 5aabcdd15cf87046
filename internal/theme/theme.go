package theme

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet.
type Theme struct {
	Name    string    // Theme name (without .css extension)
	Path    string    // User file, empty for bundled themes
	CSS     string    // Stylesheet with imports inlined
	ModTime time.Time // Last modification time of Path
}

// Bundled reports whether the theme came from the embedded set.
func (t *Theme) Bundled() bool {
	return t.Path == ""
}

// NewTheme loads a theme from a CSS file, inlining its imports.
func NewTheme(name, path string) (*Theme, error) {
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(css), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// Resolve finds the theme called name. A readable file in themesDir wins over the
// bundled theme of the same name; unknown names resolve to the default theme.
// found is false when the default was substituted.
func Resolve(name, themesDir string) (theme *Theme, found bool) {
	if name == "" {
		name = DefaultThemeName
	}

	if themesDir != "" {
		if t, err := NewTheme(name, filepath.Join(themesDir, name+".css")); err == nil {
			return t, true
		}
	}

	if css, ok := GetEmbeddedTheme(name); ok {
		return &Theme{Name: name, CSS: ProcessImports(css, "", nil)}, true
	}

	css, _ := GetEmbeddedTheme(DefaultThemeName)
	return &Theme{Name: DefaultThemeName, CSS: ProcessImports(css, "", nil)}, false
}

// ProcessImports resolves and inlines @import statements in CSS.
// Imports are resolved relative to baseDir, then against the bundled partials and themes.
// The seen map prevents circular imports.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		submatch := importRegex.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		importPath := submatch[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}

		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		importedCSS, err := os.ReadFile(fullPath)
		if err != nil {
			baseName := filepath.Base(importPath)
			if strings.HasPrefix(baseName, "_") {
				if embeddedCSS, found := GetEmbeddedPartial(baseName); found {
					return "/* imported (embedded): " + importPath + " */\n" + embeddedCSS
				}
			}
			if embeddedCSS, found := GetEmbeddedTheme(strings.TrimSuffix(baseName, ".css")); found {
				return "/* imported (embedded): " + importPath + " */\n" + ProcessImports(embeddedCSS, "", seen)
			}
			return "/* import failed: " + importPath + " - " + err.Error() + " */"
		}

		processed := ProcessImports(string(importedCSS), filepath.Dir(fullPath), seen)
		return "/* imported: " + importPath + " */\n" + processed
	})
}

// Reload rereads a user theme from disk.
// Returns true if the content changed.
func (t *Theme) Reload() (bool, error) {
	if t.Bundled() {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	css, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	oldCSS := t.CSS
	t.CSS = ProcessImports(string(css), filepath.Dir(t.Path), nil)
	t.ModTime = info.ModTime()

	return oldCSS != t.CSS, nil
}
