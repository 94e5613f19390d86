package capture

import (
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/nmurali/signbridge/internal/config"
	"github.com/nmurali/signbridge/internal/logging"
)

// DefaultMaxReadRetries bounds how many consecutive read failures a
// stream tolerates before it gives up with a ReadError.
const DefaultMaxReadRetries = 3

// Source owns one open capture device. Open it with Open or OpenWith,
// pull frames through Frames, and release it with Stop. Stop may be
// called any number of times from any goroutine; the device is closed
// exactly once and never touched again afterwards.
type Source struct {
	deviceID   int
	logger     *slog.Logger
	maxRetries int
	interval   time.Duration

	// Declared properties, read once at open time.
	width  int
	height int
	fps    float64

	mu         sync.Mutex
	device     Device
	released   bool
	releaseErr error

	// Clock seams for throttle tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// Open opens the camera described by cfg with the default backend and
// retry bound. A nil cfg falls back to the schema defaults.
func Open(cfg *config.CameraConfig, logger *slog.Logger) (*Source, error) {
	return OpenWith(GoCV, cfg, DefaultMaxReadRetries, logger)
}

// OpenWith opens the camera through an explicit backend. It fails with
// *OpenError when the backend errors or hands back a device that does
// not report itself open; no half-open Source is ever returned. A
// non-positive maxReadRetries falls back to DefaultMaxReadRetries.
func OpenWith(backend Backend, cfg *config.CameraConfig, maxReadRetries int, logger *slog.Logger) (*Source, error) {
	if cfg == nil {
		cfg = config.DefaultCamera()
	}
	if maxReadRetries <= 0 {
		maxReadRetries = DefaultMaxReadRetries
	}
	log := logging.WithComponent(logger, "capture")

	device, err := backend(cfg.CameraID)
	if err != nil {
		return nil, &OpenError{Device: cfg.CameraID, Err: err}
	}
	if device == nil || !device.IsOpened() {
		if device != nil {
			device.Close()
		}
		return nil, &OpenError{Device: cfg.CameraID}
	}

	// Request the configured geometry, then trust whatever the driver
	// actually granted. The declared values are read once and cached;
	// the device is not queried again after this point.
	device.Set(gocv.VideoCaptureFrameWidth, float64(cfg.TargetSize.Width()))
	device.Set(gocv.VideoCaptureFrameHeight, float64(cfg.TargetSize.Height()))
	if cfg.FPSLimit > 0 {
		device.Set(gocv.VideoCaptureFPS, float64(cfg.FPSLimit))
	}

	s := &Source{
		deviceID:   cfg.CameraID,
		logger:     log,
		maxRetries: maxReadRetries,
		width:      int(device.Get(gocv.VideoCaptureFrameWidth)),
		height:     int(device.Get(gocv.VideoCaptureFrameHeight)),
		fps:        device.Get(gocv.VideoCaptureFPS),
		device:     device,
		now:        time.Now,
		sleep:      time.Sleep,
	}
	if cfg.FPSLimit > 0 {
		s.interval = time.Second / time.Duration(cfg.FPSLimit)
	}

	s.logger.Info("camera opened",
		slog.Int("device", s.deviceID),
		slog.Int("width", s.width),
		slog.Int("height", s.height),
		slog.Float64("declared_fps", s.fps))
	return s, nil
}

// DeviceID returns the index the source was opened with.
func (s *Source) DeviceID() int { return s.deviceID }

// Width returns the frame width the driver declared at open time.
func (s *Source) Width() int { return s.width }

// Height returns the frame height the driver declared at open time.
func (s *Source) Height() int { return s.height }

// DeclaredFPS returns the frame rate the driver declared at open time,
// which is not necessarily the throttle limit.
func (s *Source) DeclaredFPS() float64 { return s.fps }

// IsOpen reports whether the device is still open and unreleased.
func (s *Source) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false
	}
	return s.device.IsOpened()
}

// Stop releases the capture device. It is idempotent.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

// release closes the device exactly once. Callers must hold s.mu.
func (s *Source) release() {
	if s.released {
		return
	}
	s.released = true
	s.releaseErr = s.device.Close()
	if s.releaseErr != nil {
		s.logger.Warn("error releasing camera",
			slog.Int("device", s.deviceID), logging.Err(s.releaseErr))
		return
	}
	s.logger.Debug("camera released", slog.Int("device", s.deviceID))
}

// read performs one device read under the lock so a concurrent Stop
// cannot close the handle mid-read.
func (s *Source) read(m *gocv.Mat) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false
	}
	return s.device.Read(m)
}

// Frames returns a fresh stream over the source. Streams are
// single-consumer; open one per pipeline.
func (s *Source) Frames() *Stream {
	return &Stream{source: s}
}

// Stream pulls frames from its source on demand:
//
//	frame := gocv.NewMat()
//	defer frame.Close()
//	stream := src.Frames()
//	for stream.Next(&frame) {
//		// use frame
//	}
//	if err := stream.Err(); err != nil {
//		// the device stopped producing frames
//	}
//
// Next blocks while throttling to the configured FPS limit. When the
// device closes, the stream ends normally and Err returns nil; when
// reads keep failing on an open device, the stream ends with Err
// returning a *ReadError. Both endings release the device.
type Stream struct {
	source    *Source
	failures  int
	lastYield time.Time
	err       error
	done      bool
}

// Next reads the next frame into m and reports whether one was
// produced. It returns false when the stream has ended; consult Err to
// distinguish a closed device from a read breakdown.
func (st *Stream) Next(m *gocv.Mat) bool {
	if st.done {
		return false
	}
	s := st.source

	for {
		if !s.IsOpen() {
			st.finish()
			return false
		}

		st.throttle()

		if ok := s.read(m); !ok || m.Empty() {
			if !s.IsOpen() {
				// The device went away mid-read; treat it as a normal
				// end of stream rather than a failure burst.
				st.finish()
				return false
			}
			st.failures++
			if st.failures >= s.maxRetries {
				st.err = &ReadError{Device: s.deviceID, Failures: st.failures}
				s.logger.Error("camera stopped producing frames",
					slog.Int("device", s.deviceID),
					slog.Int("failures", st.failures))
				st.finish()
				return false
			}
			s.logger.Warn("failed to read frame, retrying",
				slog.Int("device", s.deviceID),
				slog.Int("attempt", st.failures),
				slog.Int("max", s.maxRetries))
			continue
		}

		st.failures = 0
		st.lastYield = s.now()
		return true
	}
}

// Err returns the error that ended the stream, or nil if it ended
// because the device closed.
func (st *Stream) Err() error { return st.err }

func (st *Stream) finish() {
	st.done = true
	st.source.Stop()
}

// throttle sleeps off the remainder of the minimum frame interval. A
// zero interval (fps_limit 0) never sleeps; the first frame is never
// delayed.
func (st *Stream) throttle() {
	s := st.source
	if s.interval <= 0 || st.lastYield.IsZero() {
		return
	}
	elapsed := s.now().Sub(st.lastYield)
	if wait := s.interval - elapsed; wait > 0 {
		s.sleep(wait)
	}
}
