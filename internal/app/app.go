// Package app wires the SignBridge pipeline together: camera capture,
// preprocessing, motion gating, translation and the history store, all
// behind the small surface the dashboard server consumes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/nmurali/signbridge/internal/capture"
	"github.com/nmurali/signbridge/internal/config"
	"github.com/nmurali/signbridge/internal/logging"
	"github.com/nmurali/signbridge/internal/process"
	"github.com/nmurali/signbridge/internal/server"
	"github.com/nmurali/signbridge/internal/store"
	"github.com/nmurali/signbridge/internal/translate"
)

const (
	// lockFileName is the single-instance lock under data_dir. Exactly
	// one process may own the camera.
	lockFileName = "signbridge.lock"

	// settingTranslationEnabled is the settings key the translation
	// toggle persists under across restarts.
	settingTranslationEnabled = "translation_enabled"

	// statusEvery is how many frames pass between status broadcasts.
	statusEvery = 30

	// stopTimeout bounds how long Stop waits for the pipeline goroutine.
	stopTimeout = 5 * time.Second
)

// Config holds the application dependencies. Store and Events may be
// nil; the pipeline then runs without history or live events. A nil
// Backend opens a real camera.
type Config struct {
	Root     string
	Registry *config.Registry
	Store    *store.Store
	Events   *server.Hub
	Logger   *slog.Logger
	Backend  capture.Backend
}

// App owns the translation pipeline. A single goroutine pulls frames
// from the camera stream, keeps the latest JPEG for the dashboard, and
// feeds motion-gated frames through the translator and smoother.
type App struct {
	cfg     Config
	logger  *slog.Logger
	backend capture.Backend

	catalog    *translate.Catalog
	translator translate.Translator
	modelName  string

	lockPath string
	lock     *flock.Flock

	watcher *config.Watcher
	monitor *capture.Monitor

	mu         sync.Mutex
	started    bool
	appCfg     *config.AppConfig
	camCfg     *config.CameraConfig
	source     *capture.Source
	pre        *process.Preprocessor
	gate       *capture.MotionGate
	smoother   *translate.Smoother
	enabled    bool
	lastGloss  string
	frames     uint64
	latestJPEG []byte
	latestW    int
	latestH    int
	stopCh     chan struct{}
	done       chan struct{}
}

// New creates a new App instance with the given configuration.
// Component settings come from the registry; anything that fails to
// load falls back to its schema defaults.
func New(cfg Config) *App {
	logger := logging.WithComponent(cfg.Logger, "app")

	backend := cfg.Backend
	if backend == nil {
		backend = capture.GoCV
	}

	appCfg := typedOrDefault(cfg.Registry, "app", config.DefaultApp(), logger)
	procCfg := typedOrDefault(cfg.Registry, "processor", config.DefaultProcessor(), logger)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		appCfg:   appCfg,
		camCfg:   typedOrDefault(cfg.Registry, "camera", config.DefaultCamera(), logger),
		pre:      process.New(procCfg, cfg.Logger),
		gate:     capture.NewMotionGate(appCfg.Motion),
		smoother: translate.NewSmoother(appCfg.Translation),
		enabled:  true,
	}

	dataDir := filepath.Join(cfg.Root, "data")
	if cfg.Registry != nil {
		if dir, ok := cfg.Registry.GetPath("data_dir"); ok {
			dataDir = dir
		}
	}
	a.lockPath = filepath.Join(dataDir, lockFileName)
	a.lock = flock.New(a.lockPath)

	a.restoreEnabled()
	a.initTranslator()

	return a
}

// typedOrDefault fetches a configuration from the registry, falling
// back to def when the registry is absent or the load fails.
func typedOrDefault[T config.Config](reg *config.Registry, name string, def T, logger *slog.Logger) T {
	if reg == nil {
		return def
	}
	if cfg, ok := config.Typed[T](reg, name); ok {
		return cfg
	}
	logger.Warn("configuration unavailable, using defaults", slog.String("name", name))
	return def
}

// restoreEnabled brings the translation toggle back from the settings
// store. A fresh database starts enabled.
func (a *App) restoreEnabled() {
	if a.cfg.Store == nil {
		return
	}
	value, err := a.cfg.Store.Settings().Get(settingTranslationEnabled)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("failed to restore translation setting", logging.Err(err))
		}
		return
	}
	a.enabled = value == "true"
}

// initTranslator picks the configured model from the catalog, falling
// back to the mock translator when none is configured or installed.
func (a *App) initTranslator() {
	modelsDir := ""
	if a.cfg.Registry != nil {
		if dir, ok := a.cfg.Registry.GetPath("models_dir"); ok {
			modelsDir = dir
		}
	}
	a.catalog = translate.NewCatalog(modelsDir)
	if err := a.catalog.Discover(); err != nil {
		a.logger.Warn("model discovery failed", logging.Err(err))
	}

	if name := a.appCfg.Translation.Model; name != "" {
		if model, err := a.catalog.Get(name); err == nil {
			a.translator = translate.NewRunner(model, a.cfg.Logger)
			a.modelName = model.Manifest.Name
			a.logger.Info("using translation model",
				slog.String("model", model.Manifest.Name),
				slog.String("version", model.Manifest.Version))
			return
		}
		a.logger.Warn("configured model not installed, using mock translator",
			slog.String("model", name))
	} else {
		a.logger.Info("no translation model configured, using mock translator")
	}

	a.translator = translate.NewMock()
	a.modelName = "mock"
}

// Start acquires the single-instance lock and launches the pipeline.
// A camera that cannot be opened is not fatal: the dashboard keeps
// serving and the pipeline attaches when a camera appears.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.lockPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return errors.New("another signbridge instance is already running")
	}

	a.started = true
	a.stopCh = make(chan struct{})

	src, err := capture.OpenWith(a.backend, a.camCfg, 0, a.cfg.Logger)
	if err != nil {
		a.logger.Error("camera unavailable, dashboard running without video", logging.Err(err))
	} else {
		a.source = src
		a.done = make(chan struct{})
		go a.run(src, a.stopCh, a.done)
	}

	a.startWatcher()
	a.startMonitor()

	a.logger.Info("translation pipeline started", slog.String("model", a.modelName))
	return nil
}

// Stop halts the pipeline and releases the camera, the translator and
// the instance lock. It is safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	close(a.stopCh)
	src := a.source
	done := a.done
	a.mu.Unlock()

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("error stopping config watcher", logging.Err(err))
		}
		a.watcher = nil
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}

	if src != nil {
		src.Stop()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(stopTimeout):
			a.logger.Warn("pipeline did not stop in time")
		}
	}

	if err := a.translator.Close(); err != nil {
		a.logger.Warn("error closing translator", logging.Err(err))
	}
	a.gate.Close()

	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn("error releasing instance lock", logging.Err(err))
	}

	a.logger.Info("translation pipeline stopped")
}

// startWatcher begins reloading component configs when their files
// change. Watch failures leave live reload off; everything else works.
func (a *App) startWatcher() {
	if a.cfg.Registry == nil {
		return
	}
	w, err := config.NewWatcher(a.cfg.Registry, 0, a.cfg.Logger)
	if err != nil {
		a.logger.Warn("config watcher unavailable", logging.Err(err))
		return
	}
	changes, err := w.Start()
	if err != nil {
		a.logger.Warn("config watcher unavailable", logging.Err(err))
		return
	}
	a.watcher = w

	stopCh := a.stopCh
	go func() {
		for {
			select {
			case name, ok := <-changes:
				if !ok {
					return
				}
				a.applyConfigChange(name)
			case <-stopCh:
				return
			}
		}
	}()
}

// startMonitor begins watching for camera hotplug events.
func (a *App) startMonitor() {
	a.monitor = capture.NewMonitor(a.cfg.Logger, a.handleDeviceEvent)
	if err := a.monitor.Start(context.Background()); err != nil {
		a.logger.Warn("camera hotplug monitor unavailable", logging.Err(err))
	}
}

// SetEnabled turns translation on or off. The choice is persisted so a
// restart keeps it, and disabling clears the smoothing window.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	was := a.enabled
	a.enabled = enabled
	smoother := a.smoother
	a.mu.Unlock()

	if was == enabled {
		return
	}
	if !enabled {
		smoother.Reset()
	}

	if a.cfg.Store != nil {
		if err := a.cfg.Store.Settings().Set(settingTranslationEnabled, strconv.FormatBool(enabled)); err != nil {
			a.logger.Warn("failed to persist translation setting", logging.Err(err))
		}
	}

	a.logger.Info("translation toggled", slog.Bool("enabled", enabled))
	a.broadcast("translation_enabled", map[string]bool{"enabled": enabled})
}

// IsEnabled returns whether translation is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Status reports the pipeline's current state.
func (a *App) Status() server.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := server.Status{
		DeviceID:        a.camCfg.CameraID,
		FramesProcessed: a.frames,
		LastGloss:       a.lastGloss,
		Enabled:         a.enabled,
		Model:           a.modelName,
	}
	if a.source != nil {
		st.CameraOpen = a.source.IsOpen()
		st.DeviceID = a.source.DeviceID()
		st.Width = a.source.Width()
		st.Height = a.source.Height()
		st.FPS = a.source.DeclaredFPS()
	}
	return st
}

// LatestJPEG returns the most recent frame encoded as JPEG. The slice
// is replaced, never mutated, so callers may hold it across frames.
func (a *App) LatestJPEG() ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.latestJPEG) == 0 {
		return nil, false
	}
	return a.latestJPEG, true
}

// TakeSnapshot writes the latest frame to the snapshot directory and
// records it in the store.
func (a *App) TakeSnapshot() (*store.Snapshot, error) {
	a.mu.Lock()
	data := a.latestJPEG
	width, height := a.latestW, a.latestH
	a.mu.Unlock()

	if len(data) == 0 {
		return nil, errors.New("no frame available")
	}

	dir := a.snapshotDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	id := uuid.New().String()
	name := fmt.Sprintf("snapshot_%s_%s.jpg", time.Now().Format("20060102_150405"), id[:8])
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	snapshot := &store.Snapshot{
		ID:        id,
		Path:      path,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now(),
	}
	if a.cfg.Store != nil {
		if err := a.cfg.Store.Snapshots().Create(snapshot); err != nil {
			return nil, fmt.Errorf("record snapshot: %w", err)
		}
	}

	a.logger.Info("snapshot saved", slog.String("path", path))
	a.broadcast("snapshot", snapshot)
	return snapshot, nil
}

// snapshotDir resolves where snapshots land: the configured snapshot
// dir, else the registry's output_dir, else output/ under the root.
func (a *App) snapshotDir() string {
	a.mu.Lock()
	dir := a.appCfg.Snapshot.Dir
	a.mu.Unlock()

	if dir != "" {
		return dir
	}
	if a.cfg.Registry != nil {
		if out, ok := a.cfg.Registry.GetPath("output_dir"); ok {
			return out
		}
	}
	return filepath.Join(a.cfg.Root, "output")
}

// Catalog returns the model catalog.
func (a *App) Catalog() *translate.Catalog {
	return a.catalog
}

// broadcast publishes an event to dashboard clients when a hub is
// configured.
func (a *App) broadcast(event string, data any) {
	if a.cfg.Events == nil {
		return
	}
	a.cfg.Events.Broadcast(event, data)
}
