package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mockup-studio/internal/config"
	mimage "mockup-studio/internal/image"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 500 * time.Millisecond

// HotReloader watches the config file and the mockup directory. A changed
// config is re-read and validated before OnConfig callbacks run; a changed
// mockup image triggers OnMockups. Callbacks run on a timer goroutine, so UI
// code must hop back to its own thread.
type HotReloader struct {
	configPath string
	mockupDir  string
	debounce   time.Duration

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}

	mu        sync.Mutex
	onConfig  []func(*config.Config)
	onMockups []func()
	timers    map[string]*time.Timer

	logger *zap.Logger
}

// NewHotReloader creates a watcher for configPath and mockupDir. Either may
// be empty. Paths that do not exist yet are skipped.
func NewHotReloader(configPath, mockupDir string, debounce time.Duration, logger *zap.Logger) (*HotReloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	h := &HotReloader{
		configPath: configPath,
		mockupDir:  mockupDir,
		debounce:   debounce,
		watcher:    fw,
		timers:     make(map[string]*time.Timer),
		logger:     logger,
	}

	// Watch the config's directory; editors often replace the file on save.
	if configPath != "" {
		h.add(filepath.Dir(configPath))
	}
	if mockupDir != "" {
		h.add(mockupDir)
	}
	return h, nil
}

func (h *HotReloader) add(dir string) {
	if _, err := os.Stat(dir); err != nil {
		h.logger.Debug("Not watching missing directory", zap.String("dir", dir))
		return
	}
	if err := h.watcher.Add(dir); err != nil {
		h.logger.Warn("Failed to watch directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	h.logger.Debug("Watching directory", zap.String("dir", dir))
}

// OnConfig registers a callback for a successfully reloaded config.
func (h *HotReloader) OnConfig(fn func(*config.Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConfig = append(h.onConfig, fn)
}

// OnMockups registers a callback for changes in the mockup directory.
func (h *HotReloader) OnMockups(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMockups = append(h.onMockups, fn)
}

// Start begins watching in a background goroutine.
func (h *HotReloader) Start() {
	h.stopCh = make(chan struct{})
	h.done = make(chan struct{})
	go h.watchLoop()
}

// Stop ends the watch loop, cancels pending reloads and closes the watcher.
func (h *HotReloader) Stop() {
	if h.stopCh != nil {
		close(h.stopCh)
		<-h.done
		h.stopCh = nil
	}
	h.mu.Lock()
	for k, t := range h.timers {
		t.Stop()
		delete(h.timers, k)
	}
	h.mu.Unlock()
	h.watcher.Close()
}

func (h *HotReloader) watchLoop() {
	defer close(h.done)
	for {
		select {
		case <-h.stopCh:
			return
		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			h.route(ev)
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (h *HotReloader) route(ev fsnotify.Event) {
	name := filepath.Clean(ev.Name)
	switch {
	case h.configPath != "" && name == filepath.Clean(h.configPath):
		h.logger.Info("Configuration file changed", zap.String("op", ev.Op.String()))
		h.schedule("config", h.reloadConfig)
	case h.mockupDir != "" && filepath.Dir(name) == filepath.Clean(h.mockupDir) && mimage.IsSupportedFormat(name):
		h.logger.Info("Mockup changed", zap.String("file", filepath.Base(name)), zap.String("op", ev.Op.String()))
		h.schedule("mockups", h.notifyMockups)
	}
}

// schedule debounces fn under key.
func (h *HotReloader) schedule(key string, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[key]; ok {
		t.Stop()
	}
	h.timers[key] = time.AfterFunc(h.debounce, fn)
}

func (h *HotReloader) reloadConfig() {
	cfg, err := config.Load(h.configPath)
	if err != nil {
		h.logger.Error("Invalid configuration after reload, keeping previous", zap.Error(err))
		return
	}
	h.mu.Lock()
	callbacks := append(([]func(*config.Config))(nil), h.onConfig...)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	h.logger.Info("Configuration reloaded", zap.Int("callbacks_notified", len(callbacks)))
}

func (h *HotReloader) notifyMockups() {
	h.mu.Lock()
	callbacks := append([]func(){}, h.onMockups...)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
