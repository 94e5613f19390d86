package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// FakeDevice is a scripted Device used by tests and by the fake camera
// backend. Reads succeed with synthetic frames unless a script or
// failure mode says otherwise.
type FakeDevice struct {
	mu          sync.Mutex
	opened      bool
	closeCount  int
	closeErr    error
	props       map[gocv.VideoCaptureProperties]float64
	script      []bool
	afterScript bool
	maxReads    int
	reads       int
}

// NewFakeDevice returns an open fake whose reads always succeed.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{
		opened:      true,
		afterScript: true,
		props:       make(map[gocv.VideoCaptureProperties]float64),
	}
}

// NewClosedFakeDevice returns a fake that reports itself not open,
// for exercising the open-failure path.
func NewClosedFakeDevice() *FakeDevice {
	f := NewFakeDevice()
	f.opened = false
	return f
}

// ScriptReads queues per-read outcomes. Once the script is exhausted,
// reads fall back to the default outcome.
func (f *FakeDevice) ScriptReads(outcomes ...bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, outcomes...)
}

// FailAfterScript makes every read past the script fail while the
// device still reports open.
func (f *FakeDevice) FailAfterScript() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afterScript = false
}

// CloseAfterReads makes the device report closed once n reads have been
// attempted, simulating a camera that goes away mid-stream.
func (f *FakeDevice) CloseAfterReads(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxReads = n
}

// SetCloseErr makes Close return err.
func (f *FakeDevice) SetCloseErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeErr = err
}

// CloseCount returns how many times Close has been called.
func (f *FakeDevice) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

// Reads returns how many reads have been attempted.
func (f *FakeDevice) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *FakeDevice) IsOpened() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *FakeDevice) Get(prop gocv.VideoCaptureProperties) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.props[prop]
}

func (f *FakeDevice) Set(prop gocv.VideoCaptureProperties, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[prop] = value
}

func (f *FakeDevice) Read(m *gocv.Mat) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.opened {
		return false
	}
	if f.maxReads > 0 && f.reads >= f.maxReads {
		f.opened = false
		return false
	}
	f.reads++

	ok := f.afterScript
	if len(f.script) > 0 {
		ok = f.script[0]
		f.script = f.script[1:]
	}
	if !ok {
		return false
	}

	fillFrame(m, f.reads)
	return true
}

func (f *FakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	f.opened = false
	return f.closeErr
}

// Fake is a Backend producing synthetic frames, for running the
// dashboard without camera hardware.
func Fake(int) (Device, error) {
	return NewFakeDevice(), nil
}

// fillFrame writes a small synthetic frame into m. The color varies
// with the sequence number so consecutive frames differ.
func fillFrame(m *gocv.Mat, seq int) {
	scalar := gocv.NewScalar(float64((seq*37)%256), float64((seq*11)%256), float64((seq*53)%256), 0)
	frame := gocv.NewMatWithSizeFromScalar(scalar, 48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.CopyTo(m)
}
