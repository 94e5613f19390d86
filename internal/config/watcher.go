package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nmurali/signbridge/internal/logging"
)

// Watcher reloads registered configurations when their files change on
// disk and reports the affected names. Only paths registered before
// Start are watched.
type Watcher struct {
	registry *Registry
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	debounce time.Duration
	byPath   map[string]string
	changes  chan string
	done     chan struct{}
}

// DefaultDebounce batches editor write bursts into one reload.
const DefaultDebounce = 500 * time.Millisecond

// NewWatcher creates a watcher over the registry's config file paths.
// A non-positive debounce falls back to DefaultDebounce.
func NewWatcher(registry *Registry, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		registry: registry,
		logger:   logging.WithComponent(logger, "configwatch"),
		fsw:      fsw,
		debounce: debounce,
		byPath:   make(map[string]string),
		changes:  make(chan string, 8),
		done:     make(chan struct{}),
	}, nil
}

// Start snapshots the registered "*_config" paths, watches their parent
// directories, and begins delivering change notifications. Each
// notification carries the config name, already reloaded into the
// registry cache.
func (w *Watcher) Start() (<-chan string, error) {
	w.registry.mu.RLock()
	for key, path := range w.registry.paths {
		name, ok := strings.CutSuffix(key, "_config")
		if !ok {
			continue
		}
		w.byPath[filepath.Clean(path)] = name
	}
	w.registry.mu.RUnlock()

	dirs := make(map[string]struct{})
	for path := range w.byPath {
		dirs[filepath.Dir(path)] = struct{}{}
	}

	watched := 0
	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Warn("cannot watch config directory", slog.String("dir", dir), logging.Err(err))
			continue
		}
		watched++
	}
	if watched == 0 {
		return nil, fmt.Errorf("no config directory could be watched")
	}

	go w.loop()
	return w.changes, nil
}

// Stop terminates the watcher and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	pending := make(map[string]struct{})

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, ok := w.byPath[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			pending[name] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC(timer):
			for name := range pending {
				delete(pending, name)
				if w.registry.Load(name) == nil {
					// Load already logged the cause; the stale cached
					// instance keeps serving.
					continue
				}
				select {
				case w.changes <- name:
				default:
					w.logger.Warn("dropping config change notification", slog.String("name", name))
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", logging.Err(err))

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// timerC lets the select wait on a timer that may not exist yet.
func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
