package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file and reloads it on change.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	path    string

	onReload func(cfg *Config)
	onError  func(err error)
	ignore   func(data []byte) bool

	mu       sync.Mutex
	lastData []byte
	running  bool
	done     chan struct{}
	stopped  chan struct{}
}

// NewWatcher creates a new config watcher for path (default path if empty).
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		path = ConfigPath()
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: watcher,
		logger:  logger,
		path:    path,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// SetReloadCallback sets the callback invoked with each valid new config.
func (w *Watcher) SetReloadCallback(callback func(cfg *Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = callback
}

// SetErrorCallback sets the callback invoked when a changed file fails to
// load or validate.
func (w *Watcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = callback
}

// SetIgnoreFunc sets a filter for file contents that must not trigger a
// reload, such as the daemon's own writes (see FilePersister.Wrote).
func (w *Watcher) SetIgnoreFunc(fn func(data []byte) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignore = fn
}

// Start begins watching the config file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	if data, err := os.ReadFile(w.path); err == nil {
		w.lastData = data
	}
	w.mu.Unlock()

	// Watch the directory containing the file (more reliable for atomic saves)
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.watch()
	return nil
}

// watch is the main watch loop.
func (w *Watcher) watch() {
	defer close(w.stopped)
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// reload loads the file and notifies callbacks when its content changed.
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Debug("failed to read config file", "path", w.path, "error", err)
		}
		return
	}

	w.mu.Lock()
	if bytes.Equal(data, w.lastData) {
		w.mu.Unlock()
		return
	}
	w.lastData = data
	reloadCallback := w.onReload
	errorCallback := w.onError
	ignore := w.ignore
	w.mu.Unlock()

	if ignore != nil && ignore(data) {
		w.logger.Debug("skipping self-written config", "path", w.path)
		return
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "path", w.path, "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.logger.Debug("config reloaded", "path", w.path)
	if reloadCallback != nil {
		reloadCallback(cfg)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	close(w.done)
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.stopped
	return err
}
