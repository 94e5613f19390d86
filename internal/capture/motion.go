package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/nmurali/signbridge/internal/config"
)

// Frame differencing tuning. The kernel smooths sensor noise out before
// the diff; the threshold decides which pixel deltas count as change.
const (
	blurKernel    = 21
	diffThreshold = 25
)

// MotionGate decides whether a frame is worth translating by measuring
// how much of the scene changed since the previous frame. A disabled
// gate passes everything through.
type MotionGate struct {
	mu        sync.Mutex
	enabled   bool
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionGate creates a gate from the app's motion settings. The
// threshold is the percentage of pixels that must change for a frame to
// count as active.
func NewMotionGate(cfg config.MotionConfig) *MotionGate {
	return &MotionGate{
		enabled:   cfg.Enabled,
		threshold: cfg.Threshold,
		prev:      gocv.NewMat(),
	}
}

// Active reports whether frame shows enough change to translate, plus
// the measured change percentage. The first frame primes the baseline
// and reports inactive; a disabled gate reports active without doing
// any work.
func (g *MotionGate) Active(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.enabled {
		return true, 0
	}
	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !g.primed {
		blurred.CopyTo(&g.prev)
		g.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(thresh)
	total := thresh.Rows() * thresh.Cols()
	percent := float64(changed) / float64(total) * 100.0

	blurred.CopyTo(&g.prev)

	return percent > g.threshold, percent
}

// Update applies new motion settings and drops the baseline so the next
// frame primes it fresh.
func (g *MotionGate) Update(cfg config.MotionConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = cfg.Enabled
	g.threshold = cfg.Threshold
	g.primed = false
}

// Reset drops the baseline frame.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
}

// Close releases the retained baseline.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.prev.Empty() {
		g.prev.Close()
		g.prev = gocv.NewMat()
	}
	g.primed = false
}
