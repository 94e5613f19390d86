// Package capture acquires frames from camera devices using GoCV
// (OpenCV). A Source owns exactly one open device; construction fails
// hard with a typed error when the device cannot be opened, in contrast
// to the config registry's soft failures. Frames are pulled through a
// Stream, which throttles to the configured FPS limit, retries a
// bounded number of consecutive read failures, and guarantees the
// device is released exactly once however the stream ends.
package capture

import "gocv.io/x/gocv"

// Device is the minimal surface a capture backend must provide. It is
// satisfied by *gocv.VideoCapture; tests substitute scripted fakes.
type Device interface {
	IsOpened() bool
	Get(prop gocv.VideoCaptureProperties) float64
	Set(prop gocv.VideoCaptureProperties, value float64)
	Read(m *gocv.Mat) bool
	Close() error
}

// Backend opens the capture device with the given index.
type Backend func(deviceID int) (Device, error)

// GoCV is the default backend, opening a real camera through OpenCV.
func GoCV(deviceID int) (Device, error) {
	return gocv.OpenVideoCapture(deviceID)
}
