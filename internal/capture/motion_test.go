package capture

import (
	"testing"

	"gocv.io/x/gocv"

	"github.com/nmurali/signbridge/internal/config"
)

func TestNewMotionGate(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MotionConfig
	}{
		{
			name: "enabled with default threshold",
			cfg:  config.MotionConfig{Enabled: true, Threshold: 2.0},
		},
		{
			name: "disabled",
			cfg:  config.MotionConfig{Enabled: false, Threshold: 2.0},
		},
		{
			name: "tight threshold",
			cfg:  config.MotionConfig{Enabled: true, Threshold: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMotionGate(tt.cfg)
			if g == nil {
				t.Fatal("NewMotionGate returned nil")
			}
			defer g.Close()

			if g.enabled != tt.cfg.Enabled {
				t.Errorf("enabled = %v, want %v", g.enabled, tt.cfg.Enabled)
			}
			if g.threshold != tt.cfg.Threshold {
				t.Errorf("threshold = %v, want %v", g.threshold, tt.cfg.Threshold)
			}
			if g.primed {
				t.Error("gate should not be primed before the first frame")
			}
		})
	}
}

func TestMotionGate_DisabledPassesEverything(t *testing.T) {
	g := NewMotionGate(config.MotionConfig{Enabled: false, Threshold: 2.0})
	defer g.Close()

	// A disabled gate must not even look at the frame.
	active, percent := g.Active(nil)
	if !active {
		t.Error("disabled gate should report active")
	}
	if percent != 0 {
		t.Errorf("disabled gate percent = %v, want 0", percent)
	}
}

func TestMotionGate_StaticScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(config.MotionConfig{Enabled: true, Threshold: 1.0})
	defer g.Close()

	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	// The first frame primes the baseline.
	if active, percent := g.Active(&frame1); active || percent != 0 {
		t.Errorf("priming frame = (%v, %v), want (false, 0)", active, percent)
	}

	if active, percent := g.Active(&frame2); active {
		t.Errorf("identical frames reported active with %.2f%% change", percent)
	}
}

func TestMotionGate_SceneChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(config.MotionConfig{Enabled: true, Threshold: 1.0})
	defer g.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	g.Active(&black)
	active, percent := g.Active(&white)
	if !active {
		t.Errorf("black to white reported inactive, change = %.2f%%", percent)
	}
	if percent < 50.0 {
		t.Errorf("change = %.2f%%, want > 50%% for a full scene swap", percent)
	}
}

func TestMotionGate_EmptyFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(config.MotionConfig{Enabled: true, Threshold: 1.0})
	defer g.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if active, _ := g.Active(&empty); active {
		t.Error("empty frame should report inactive")
	}
	if active, _ := g.Active(nil); active {
		t.Error("nil frame should report inactive")
	}
}

func TestMotionGate_UpdateDropsBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(config.MotionConfig{Enabled: true, Threshold: 1.0})
	defer g.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	g.Active(&frame)
	if !g.primed {
		t.Fatal("gate should be primed after the first frame")
	}

	g.Update(config.MotionConfig{Enabled: true, Threshold: 5.0})
	if g.primed {
		t.Error("Update should drop the baseline")
	}
	if g.threshold != 5.0 {
		t.Errorf("threshold = %v, want 5.0", g.threshold)
	}
}

func TestMotionGate_CloseIsIdempotent(t *testing.T) {
	g := NewMotionGate(config.MotionConfig{Enabled: true, Threshold: 1.0})
	g.Close()
	g.Close()
}
