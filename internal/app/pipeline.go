package app

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/nmurali/signbridge/internal/capture"
	"github.com/nmurali/signbridge/internal/config"
	"github.com/nmurali/signbridge/internal/logging"
	"github.com/nmurali/signbridge/internal/process"
	"github.com/nmurali/signbridge/internal/store"
	"github.com/nmurali/signbridge/internal/translate"
)

// run is the pipeline goroutine. It is the stream's only consumer:
// every frame updates the dashboard preview, and frames that pass the
// motion gate go through the preprocessor, the translator and the
// smoother. The loop ends when the device closes, reads break down, or
// stopCh closes.
func (a *App) run(src *capture.Source, stopCh <-chan struct{}, done chan struct{}) {
	defer func() {
		a.mu.Lock()
		if a.source == src {
			a.source = nil
		}
		a.mu.Unlock()
		close(done)
	}()

	frame := gocv.NewMat()
	defer frame.Close()

	stream := src.Frames()
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		if !stream.Next(&frame) {
			break
		}
		a.processFrame(&frame)
	}

	if err := stream.Err(); err != nil {
		a.logger.Error("camera stream failed", logging.Err(err))
	} else {
		a.logger.Info("camera stream ended")
	}
	a.broadcast("camera", map[string]any{"open": false})
}

// processFrame handles one frame: refresh the preview JPEG, then, when
// translation is on and the scene is active, translate and smooth. A
// gated or failed frame still counts against the smoothing window so a
// stale gloss does not linger.
func (a *App) processFrame(frame *gocv.Mat) {
	preview := encodeFrame(frame)

	a.mu.Lock()
	if preview != nil {
		a.latestJPEG = preview
		a.latestW = frame.Cols()
		a.latestH = frame.Rows()
	}
	a.frames++
	frames := a.frames
	enabled := a.enabled
	pre := a.pre
	smoother := a.smoother
	keep := a.appCfg.History.Limit
	a.mu.Unlock()

	if frames%statusEvery == 0 {
		a.broadcast("status", a.Status())
	}

	if !enabled {
		return
	}

	if active, _ := a.gate.Active(frame); !active {
		smoother.Observe(nil)
		return
	}

	processed, ok := pre.Process(*frame)
	if !ok {
		return
	}
	defer processed.Close()

	preds, err := a.translator.Translate(&processed)
	if err != nil {
		a.logger.Warn("translation failed", logging.Err(err))
		smoother.Observe(nil)
		return
	}

	gloss, changed := smoother.Observe(preds)
	if !changed {
		return
	}
	a.recordTranslation(gloss, preds, keep)
}

// recordTranslation persists a newly stable gloss, prunes the history
// to its configured limit and broadcasts the result.
func (a *App) recordTranslation(gloss string, preds []translate.Prediction, keep int) {
	var score float64
	for _, p := range preds {
		if p.Gloss == gloss && p.Score > score {
			score = p.Score
		}
	}

	a.mu.Lock()
	a.lastGloss = gloss
	a.mu.Unlock()

	translation := &store.Translation{
		ID:        uuid.New().String(),
		Gloss:     gloss,
		Score:     score,
		Model:     a.modelName,
		CreatedAt: time.Now(),
	}
	if a.cfg.Store != nil {
		if err := a.cfg.Store.Translations().Create(translation); err != nil {
			a.logger.Warn("failed to record translation", logging.Err(err))
		} else if keep > 0 {
			if _, err := a.cfg.Store.Translations().Prune(keep); err != nil {
				a.logger.Warn("failed to prune history", logging.Err(err))
			}
		}
	}

	a.logger.Info("translation",
		slog.String("gloss", gloss), slog.Float64("score", score))
	a.broadcast("translation", translation)
}

// encodeFrame returns frame as JPEG bytes, or nil when encoding fails.
// The bytes are copied out of the encoder's native buffer.
func encodeFrame(frame *gocv.Mat) []byte {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

// applyConfigChange reacts to a config file changing on disk. The
// watcher has already reloaded the registry cache; this swaps the live
// components that can change without a restart.
func (a *App) applyConfigChange(name string) {
	switch name {
	case "processor":
		cfg, ok := config.Typed[*config.ProcessorConfig](a.cfg.Registry, "processor")
		if !ok {
			return
		}
		a.mu.Lock()
		a.pre = process.New(cfg, a.cfg.Logger)
		a.mu.Unlock()
		a.logger.Info("processor settings reapplied")

	case "app":
		cfg, ok := config.Typed[*config.AppConfig](a.cfg.Registry, "app")
		if !ok {
			return
		}
		a.mu.Lock()
		restart := cfg.ListenAddr != a.appCfg.ListenAddr ||
			cfg.Translation.Model != a.appCfg.Translation.Model
		a.gate.Update(cfg.Motion)
		a.smoother = translate.NewSmoother(cfg.Translation)
		a.appCfg = cfg
		a.mu.Unlock()
		if restart {
			a.logger.Info("listen address or model changed, restart to apply")
		}
		a.logger.Info("app settings reapplied")

	case "camera":
		a.logger.Info("camera settings changed, restart to apply")
	}

	a.broadcast("config", map[string]string{"name": name})
}

// handleDeviceEvent reacts to camera hotplug. An attach while the
// pipeline has no camera triggers a reopen of the configured device.
func (a *App) handleDeviceEvent(event capture.DeviceEvent) {
	a.broadcast("device", map[string]string{"action": event.Action, "node": event.Node})

	if event.Action == "add" {
		a.reopenCamera()
	}
}

// reopenCamera attaches the configured camera to a running app that
// currently has none. The device is opened outside the app lock; a
// racing open or shutdown discards the handle.
func (a *App) reopenCamera() {
	a.mu.Lock()
	if !a.started || a.source != nil {
		a.mu.Unlock()
		return
	}
	camCfg := a.camCfg
	a.mu.Unlock()

	src, err := capture.OpenWith(a.backend, camCfg, 0, a.cfg.Logger)
	if err != nil {
		a.logger.Warn("camera reopen failed", logging.Err(err))
		return
	}

	a.mu.Lock()
	if !a.started || a.source != nil {
		a.mu.Unlock()
		src.Stop()
		return
	}
	a.source = src
	done := make(chan struct{})
	a.done = done
	stopCh := a.stopCh
	a.mu.Unlock()

	go a.run(src, stopCh, done)
	a.logger.Info("camera reattached", slog.Int("device", src.DeviceID()))
	a.broadcast("camera", map[string]any{"open": true})
}
