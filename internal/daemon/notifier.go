package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/toaster/internal/model"
)

// NotificationLevel indicates the severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages.
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages.
	NotificationLevelWarning
	// NotificationLevelError is for error messages.
	NotificationLevelError
)

// Class returns the toast style for the level.
func (l NotificationLevel) Class() string {
	switch l {
	case NotificationLevelWarning:
		return model.ClassWarning
	case NotificationLevelError:
		return model.ClassDanger
	default:
		return model.ClassSuccess
	}
}

// InternalNotifier toasts about toasterd's own events.
// Repeats of the same key within the minimum interval are dropped.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	submit func(text, class string)

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	now            func() time.Time

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		now:            time.Now,
		enabled:        true,
	}
}

// SetSubmitFunc sets the function that displays a toast. It must not block.
func (n *InternalNotifier) SetSubmitFunc(submit func(text, class string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submit = submit
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Notify sends an internal notification unless it is rate limited.
func (n *InternalNotifier) Notify(key, text string, level NotificationLevel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return
	}
	if n.submit == nil {
		n.logger.Debug("internal notification skipped: no submit func", "text", text)
		return
	}

	now := n.now()
	if lastTime, ok := n.lastNotifyTime[key]; ok && now.Sub(lastTime) < n.minInterval {
		n.logger.Debug("internal notification rate-limited", "key", key)
		return
	}
	n.lastNotifyTime[key] = now

	n.logger.Debug("sending internal notification", "key", key, "level", level)
	n.submit(text, level.Class())
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration reloaded", NotificationLevelInfo)
}

// NotifyConfigError reports a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Failed to reload configuration: "+err.Error(), NotificationLevelWarning)
}

// NotifyThemeReloaded reports a theme reload.
func (n *InternalNotifier) NotifyThemeReloaded(themeName string) {
	n.Notify("theme-reload", "Theme '"+themeName+"' reloaded", NotificationLevelInfo)
}

// NotifyThemeError reports a theme that failed to load.
func (n *InternalNotifier) NotifyThemeError(err error) {
	n.Notify("theme-error", "Failed to load theme: "+err.Error(), NotificationLevelWarning)
}

// NotifyAudioError reports a sound that failed to play.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify("audio-error", "Failed to play sound: "+err.Error(), NotificationLevelWarning)
}

// NotifyBusNameTaken reports that another daemon owns the notification bus name.
func (n *InternalNotifier) NotifyBusNameTaken() {
	n.Notify("bus-name", "Another notification daemon is running; mirroring its notifications", NotificationLevelError)
}
