package translate

import (
	"sync"

	"gocv.io/x/gocv"
)

// Mock is a test implementation of the Translator interface. It also
// backs the dashboard when no model is installed.
type Mock struct {
	mu    sync.Mutex
	preds []Prediction
	err   error
	calls int
}

// NewMock creates a new Mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// SetPredictions sets the predictions that will be returned by Translate.
func (m *Mock) SetPredictions(preds []Prediction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preds = preds
}

// SetError sets the error that will be returned by Translate.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Translate returns the pre-configured predictions or error.
func (m *Mock) Translate(frame *gocv.Mat) ([]Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.preds, nil
}

// Calls returns how many times Translate has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock translator.
func (m *Mock) Close() error {
	return nil
}

// HelloPredictions returns a preset prediction list with "hello" on top.
func HelloPredictions() []Prediction {
	return []Prediction{
		{Gloss: "hello", Score: 0.92},
		{Gloss: "goodbye", Score: 0.05},
	}
}

// ThankYouPredictions returns a preset prediction list with "thank_you"
// on top.
func ThankYouPredictions() []Prediction {
	return []Prediction{
		{Gloss: "thank_you", Score: 0.88},
		{Gloss: "please", Score: 0.09},
	}
}
