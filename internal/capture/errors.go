package capture

import "fmt"

// OpenError reports that the camera device could not be opened. The
// device index is carried so callers can tell the user which camera to
// check.
type OpenError struct {
	Device int
	Err    error
}

func (e *OpenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not open camera with ID %d: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("could not open camera with ID %d", e.Device)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ReadError reports that the camera stopped producing frames: the
// configured number of consecutive reads failed while the device still
// claimed to be open.
type ReadError struct {
	Device   int
	Failures int
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read frame from camera %d after %d consecutive attempts",
		e.Device, e.Failures)
}
