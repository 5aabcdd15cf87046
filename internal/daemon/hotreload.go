package daemon

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/toaster/internal/config"
)

// DefaultDebounce coalesces the burst of events editors produce when saving.
const DefaultDebounce = 150 * time.Millisecond

// FileWatcher watches a single file for writes and calls a callback after changes settle.
// The parent directory is watched so editors that replace the file are still seen.
type FileWatcher struct {
	mu       sync.Mutex
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func()
	timer    *time.Timer
	done     chan struct{}
	running  bool
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(path string, logger *slog.Logger) *FileWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWatcher{
		logger:   logger,
		path:     path,
		debounce: DefaultDebounce,
	}
}

// SetDebounce sets how long the file must be quiet before the callback runs.
func (w *FileWatcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// SetChangeCallback sets the callback to invoke when the file changes.
func (w *FileWatcher) SetChangeCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start begins watching the file.
func (w *FileWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	w.running = true

	go w.watch(watcher, w.done)

	w.logger.Debug("file watcher started", "path", w.path)
	return nil
}

// Stop stops watching.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	watcher := w.watcher
	w.mu.Unlock()

	w.logger.Debug("file watcher stopped", "path", w.path)
	return watcher.Close()
}

// watch is the main watch loop.
func (w *FileWatcher) watch(watcher *fsnotify.Watcher, done chan struct{}) {
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "path", w.path, "error", err)

		case <-done:
			return
		}
	}
}

// schedule restarts the debounce timer.
func (w *FileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *FileWatcher) fire() {
	w.mu.Lock()
	callback := w.onChange
	running := w.running
	w.mu.Unlock()

	if !running || callback == nil {
		return
	}

	w.logger.Debug("file changed", "path", w.path)
	callback()
}

// ConfigWatcher reloads the configuration file when it changes.
// A change that fails to load or validate keeps the current configuration.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	path   string
	files  *FileWatcher

	currentConfig *config.Config

	onReloadCallback func(newConfig *config.Config)
	onErrorCallback  func(err error)
}

// NewConfigWatcher creates a ConfigWatcher for the config file at path.
// If path is empty, the default config path is used.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = config.Path()
	}
	w := &ConfigWatcher{
		logger: logger,
		path:   path,
		files:  NewFileWatcher(path, logger),
	}
	w.files.SetChangeCallback(w.reload)
	return w
}

// SetDebounce sets how long the file must be quiet before it is reloaded.
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.files.SetDebounce(d)
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the config file for changes.
func (w *ConfigWatcher) Start(initialConfig *config.Config) error {
	w.mu.Lock()
	w.currentConfig = initialConfig
	w.mu.Unlock()

	if err := w.files.Start(); err != nil {
		return err
	}
	w.logger.Debug("config watcher started", "path", w.path)
	return nil
}

// Stop stops watching the config file.
func (w *ConfigWatcher) Stop() error {
	return w.files.Stop()
}

// Current returns the current valid configuration.
func (w *ConfigWatcher) Current() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

// reload loads and validates the changed config file.
func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	newConfig, err := config.Load(w.path)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully", "path", w.path)
	if reloadCallback != nil {
		reloadCallback(newConfig)
	}
}
