package audio

import (
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/toaster/internal/config"
	"github.com/jmylchreest/toaster/internal/model"
)

// Manager plays the sound configured for a toast's class.
type Manager struct {
	mu     sync.RWMutex
	logger *slog.Logger
	player *Player
	config *config.Config

	onError func(err error)
}

// NewManager creates a new audio manager.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	m := &Manager{
		logger: logger,
		player: NewPlayer(logger),
		config: cfg,
	}
	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
	return m
}

// SetErrorCallback sets the callback invoked when a show hook fails to play a sound.
func (m *Manager) SetErrorCallback(cb func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = cb
}

// Start preloads the configured sounds. Missing files are logged and skipped.
func (m *Manager) Start() {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if !cfg.Audio.Enabled {
		m.logger.Debug("audio disabled")
		return
	}

	loaded := 0
	for _, path := range soundPaths(cfg) {
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("sound file not found", "path", path)
			continue
		}
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
			continue
		}
		loaded++
	}
	m.logger.Info("audio manager started", "sounds", loaded)
}

// Stop shuts down the audio manager.
func (m *Manager) Stop() {
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// PlayForClass plays the sound configured for class, or the default sound.
// It is a no-op when audio is disabled or no sound is configured.
func (m *Manager) PlayForClass(class string) error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if !cfg.Audio.Enabled {
		return nil
	}

	path := cfg.SoundForClass(class)
	if path == "" {
		m.logger.Debug("no sound configured for class", "class", class)
		return nil
	}
	return m.player.Play(path)
}

// OnShow plays the sound for t without blocking. It matches toast.ShowHook.
func (m *Manager) OnShow(t *model.Toast) {
	go func() {
		if err := m.PlayForClass(t.Class); err != nil {
			m.logger.Debug("failed to play toast sound", "toast_id", t.ID, "class", t.Class, "error", err)
			m.mu.RLock()
			onError := m.onError
			m.mu.RUnlock()
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// UpdateConfig applies a hot-reloaded configuration and drops cached sounds.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
	m.player.ClearCache()
	m.logger.Debug("audio manager config updated", "enabled", cfg.Audio.Enabled, "volume", cfg.Audio.Volume)
	m.Start()
}

// soundPaths returns the distinct sound files referenced by cfg.
func soundPaths(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, class := range []string{model.ClassSuccess, model.ClassWarning, model.ClassDanger, ""} {
		path := cfg.SoundForClass(class)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	return paths
}
