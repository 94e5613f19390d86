package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nmurali/signbridge/internal/capture"
	"github.com/nmurali/signbridge/internal/config"
	"github.com/nmurali/signbridge/internal/store"
	"github.com/nmurali/signbridge/internal/translate"
)

// newTestApp builds an app over a temp root with a fake camera, a real
// store and an unthrottled camera config so tests run fast.
func newTestApp(t *testing.T, backend capture.Backend) (*App, *store.Store) {
	t.Helper()

	root := t.TempDir()
	registry := config.NewRegistry(root, nil)
	config.RegisterDefaults(registry)

	camCfg := config.DefaultCamera()
	camCfg.FPSLimit = 0
	path, ok := registry.GetPath("camera_config")
	if !ok {
		t.Fatal("camera_config path not registered")
	}
	if !registry.Save(camCfg, path) {
		t.Fatal("failed to save camera config")
	}

	s, err := store.New(filepath.Join(root, "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if backend == nil {
		backend = capture.Fake
	}

	app := New(Config{
		Root:     root,
		Registry: registry,
		Store:    s,
		Backend:  backend,
	})
	return app, s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestApp_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	device := capture.NewFakeDevice()
	app, _ := newTestApp(t, func(int) (capture.Device, error) { return device, nil })

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !app.Status().CameraOpen {
		t.Error("camera should be open after Start")
	}

	// A second Start on a running app is a no-op.
	if err := app.Start(); err != nil {
		t.Errorf("second Start() error = %v", err)
	}

	app.Stop()
	if app.Status().CameraOpen {
		t.Error("camera should be closed after Stop")
	}
	if got := device.CloseCount(); got != 1 {
		t.Errorf("device closed %d times, want 1", got)
	}

	// Stop is idempotent.
	app.Stop()
	if got := device.CloseCount(); got != 1 {
		t.Errorf("device closed %d times after second Stop, want 1", got)
	}
}

func TestApp_SingleInstance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	root := t.TempDir()
	opened := 0
	backend := func(int) (capture.Device, error) {
		opened++
		return capture.NewFakeDevice(), nil
	}

	first := New(Config{Root: root, Backend: backend})
	second := New(Config{Root: root, Backend: backend})

	if err := first.Start(); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	defer first.Stop()

	err := second.Start()
	if err == nil {
		second.Stop()
		t.Fatal("second Start() should fail while the first instance runs")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("second Start() error = %q, want it to mention already running", err)
	}
	if opened != 1 {
		t.Errorf("camera opened %d times, want 1; the lock must be taken first", opened)
	}

	first.Stop()
	if err := second.Start(); err != nil {
		t.Fatalf("second Start() after first Stop error = %v", err)
	}
	second.Stop()
}

func TestApp_DegradedWithoutCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app, _ := newTestApp(t, func(int) (capture.Device, error) {
		return nil, errors.New("no such device")
	})

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v, want degraded start without camera", err)
	}
	defer app.Stop()

	if app.Status().CameraOpen {
		t.Error("camera should report closed")
	}
	if _, ok := app.LatestJPEG(); ok {
		t.Error("LatestJPEG() should report no frame")
	}
	if _, err := app.TakeSnapshot(); err == nil {
		t.Error("TakeSnapshot() should fail without a frame")
	}
}

func TestApp_PipelineTranslates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app, s := newTestApp(t, nil)

	mock := translate.NewMock()
	mock.SetPredictions(translate.HelloPredictions())
	app.translator = mock

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer app.Stop()

	ok := waitFor(t, 5*time.Second, func() bool {
		rows, err := s.Translations().ListRecent(10)
		return err == nil && len(rows) > 0
	})
	if !ok {
		t.Fatal("no translation recorded within the deadline")
	}

	rows, err := s.Translations().ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if rows[0].Gloss != "hello" {
		t.Errorf("recorded gloss = %q, want hello", rows[0].Gloss)
	}
	if rows[0].Model != "mock" {
		t.Errorf("recorded model = %q, want mock", rows[0].Model)
	}
	if rows[0].Score != 0.92 {
		t.Errorf("recorded score = %v, want 0.92", rows[0].Score)
	}
	if got := app.Status().LastGloss; got != "hello" {
		t.Errorf("Status().LastGloss = %q, want hello", got)
	}

	// A changed sign becomes a second history row once it stabilizes.
	mock.SetPredictions(translate.ThankYouPredictions())
	ok = waitFor(t, 5*time.Second, func() bool {
		rows, err := s.Translations().ListRecent(10)
		return err == nil && len(rows) >= 2 && rows[0].Gloss == "thank_you"
	})
	if !ok {
		t.Fatal("changed gloss was not recorded within the deadline")
	}

	data, ok := app.LatestJPEG()
	if !ok {
		t.Fatal("LatestJPEG() reported no frame")
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("latest frame is not a JPEG")
	}
}

func TestApp_DisabledSkipsTranslation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app, s := newTestApp(t, nil)

	mock := translate.NewMock()
	mock.SetPredictions(translate.HelloPredictions())
	app.translator = mock
	app.SetEnabled(false)

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer app.Stop()

	ok := waitFor(t, 5*time.Second, func() bool {
		return app.Status().FramesProcessed > 10
	})
	if !ok {
		t.Fatal("pipeline did not process frames")
	}

	if got := mock.Calls(); got != 0 {
		t.Errorf("translator called %d times while disabled, want 0", got)
	}
	rows, err := s.Translations().ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("history has %d rows while disabled, want 0", len(rows))
	}

	// The preview keeps updating even with translation off.
	if _, ok := app.LatestJPEG(); !ok {
		t.Error("LatestJPEG() should report a frame while disabled")
	}
}

func TestApp_SetEnabledPersists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app, s := newTestApp(t, nil)

	if !app.IsEnabled() {
		t.Fatal("a fresh app should start enabled")
	}
	app.SetEnabled(false)

	restarted := New(Config{Root: app.cfg.Root, Store: s})
	if restarted.IsEnabled() {
		t.Error("restarted app should restore the disabled state")
	}

	restarted.SetEnabled(true)
	again := New(Config{Root: app.cfg.Root, Store: s})
	if !again.IsEnabled() {
		t.Error("restarted app should restore the enabled state")
	}
}

func TestApp_TakeSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app, s := newTestApp(t, nil)

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer app.Stop()

	ok := waitFor(t, 5*time.Second, func() bool {
		_, ok := app.LatestJPEG()
		return ok
	})
	if !ok {
		t.Fatal("no frame available for the snapshot")
	}

	snapshot, err := app.TakeSnapshot()
	if err != nil {
		t.Fatalf("TakeSnapshot() error = %v", err)
	}

	if _, err := os.Stat(snapshot.Path); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
	wantDir := filepath.Join(app.cfg.Root, "output")
	if filepath.Dir(snapshot.Path) != wantDir {
		t.Errorf("snapshot dir = %q, want %q", filepath.Dir(snapshot.Path), wantDir)
	}
	if snapshot.Width != 64 || snapshot.Height != 48 {
		t.Errorf("snapshot size = %dx%d, want 64x48", snapshot.Width, snapshot.Height)
	}

	stored, err := s.Snapshots().List()
	if err != nil {
		t.Fatalf("Snapshots().List() error = %v", err)
	}
	if len(stored) != 1 || stored[0].ID != snapshot.ID {
		t.Errorf("stored snapshots = %v, want the one just taken", stored)
	}
}

func TestApp_ReadBreakdownEndsPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	device := capture.NewFakeDevice()
	device.ScriptReads(true, true)
	device.FailAfterScript()
	app, _ := newTestApp(t, func(int) (capture.Device, error) { return device, nil })

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer app.Stop()

	ok := waitFor(t, 5*time.Second, func() bool {
		return !app.Status().CameraOpen
	})
	if !ok {
		t.Fatal("pipeline did not end after the read breakdown")
	}
	if got := device.CloseCount(); got != 1 {
		t.Errorf("device closed %d times, want 1", got)
	}
	if got := app.Status().FramesProcessed; got != 2 {
		t.Errorf("FramesProcessed = %d, want 2", got)
	}
}

func TestApp_ReopensCameraOnAttach(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	attempts := 0
	backend := func(int) (capture.Device, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("no such device")
		}
		return capture.NewFakeDevice(), nil
	}
	app, _ := newTestApp(t, backend)

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer app.Stop()

	if app.Status().CameraOpen {
		t.Fatal("camera should start unavailable")
	}

	app.handleDeviceEvent(capture.DeviceEvent{Action: "add", Node: "/dev/video0"})

	ok := waitFor(t, 5*time.Second, func() bool {
		return app.Status().CameraOpen
	})
	if !ok {
		t.Error("camera did not come back after the attach event")
	}
}

func TestApp_ApplyConfigChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app, _ := newTestApp(t, nil)
	registry := app.cfg.Registry

	t.Run("processor swap", func(t *testing.T) {
		before := app.pre

		procCfg := config.DefaultProcessor()
		procCfg.FrameWidth = 320
		procCfg.FrameHeight = 320
		path, _ := registry.GetPath("processor_config")
		if !registry.Save(procCfg, path) {
			t.Fatal("failed to save processor config")
		}
		if registry.Load("processor") == nil {
			t.Fatal("failed to reload processor config")
		}

		app.applyConfigChange("processor")
		if app.pre == before {
			t.Error("preprocessor was not swapped")
		}
	})

	t.Run("app settings", func(t *testing.T) {
		appCfg := config.DefaultApp()
		appCfg.Translation.SmoothWindow = 9
		path, _ := registry.GetPath("app_config")
		if !registry.Save(appCfg, path) {
			t.Fatal("failed to save app config")
		}
		if registry.Load("app") == nil {
			t.Fatal("failed to reload app config")
		}

		before := app.smoother
		app.applyConfigChange("app")
		if app.smoother == before {
			t.Error("smoother was not rebuilt")
		}
		if got := app.appCfg.Translation.SmoothWindow; got != 9 {
			t.Errorf("SmoothWindow = %d, want 9", got)
		}
	})
}
