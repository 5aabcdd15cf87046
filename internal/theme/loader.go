package theme

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/toaster/internal/config"
)

// Loader loads themes into a CSS provider attached to the display.
// LoadTheme, Apply and Reload must be called on the GTK main loop.
type Loader struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	provider  *gtk.CSSProvider
	themesDir string
	theme     *Theme
	applied   bool
}

// NewLoader creates a loader reading user themes from the toaster config directory.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:    logger,
		provider:  gtk.NewCSSProvider(),
		themesDir: ThemesDir(),
	}
}

// ThemesDir returns the directory user themes are read from.
func ThemesDir() string {
	return filepath.Dir(config.ThemePath(DefaultThemeName))
}

// LoadTheme loads a theme by name into the provider. An unknown name loads the
// default theme and returns an error naming the missing theme.
func (l *Loader) LoadTheme(name string) error {
	t, found := Resolve(name, l.themesDir)

	l.mu.Lock()
	l.theme = t
	l.provider.LoadFromString(t.CSS)
	l.mu.Unlock()

	if !found {
		l.logger.Warn("theme not found, using default", "theme", name)
		return ErrThemeNotFound
	}
	if t.Bundled() {
		l.logger.Info("loaded bundled theme", "name", t.Name)
	} else {
		l.logger.Info("loaded user theme", "name", t.Name, "path", t.Path)
	}
	return nil
}

// Apply attaches the provider to display, or the default display when nil.
func (l *Loader) Apply(display *gdk.Display) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applied {
		return
	}
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}

	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.applied = true
	l.logger.Debug("applied theme to display", "name", l.theme.Name)
}

// Reload rereads the current user theme and reports whether the stylesheet changed.
func (l *Loader) Reload() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.theme == nil {
		return false, nil
	}
	changed, err := l.theme.Reload()
	if err != nil || !changed {
		return false, err
	}
	l.provider.LoadFromString(l.theme.CSS)
	l.logger.Info("hot-reloaded theme", "name", l.theme.Name)
	return true, nil
}

// Path returns the file backing the current theme, empty for bundled themes.
func (l *Loader) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.theme == nil {
		return ""
	}
	return l.theme.Path
}

// CurrentTheme returns the name of the currently loaded theme.
func (l *Loader) CurrentTheme() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.theme == nil {
		return ""
	}
	return l.theme.Name
}

// ErrThemeNotFound is returned by LoadTheme when the default theme was substituted.
const ErrThemeNotFound = themeError("theme not found")

type themeError string

func (e themeError) Error() string { return string(e) }
