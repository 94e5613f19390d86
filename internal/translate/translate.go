// Package translate turns preprocessed camera frames into sign-language
// glosses. Models run out of process; the package owns the model
// catalog, the subprocess bridge and the output smoothing.
package translate

import "gocv.io/x/gocv"

// Prediction is one candidate gloss for a frame.
type Prediction struct {
	Gloss string  `json:"gloss"`
	Score float64 `json:"score"`
}

// Translator defines the interface for translation implementations.
type Translator interface {
	// Translate analyzes a frame and returns candidate glosses, best
	// first. Returns an empty slice when the frame shows no sign.
	Translate(frame *gocv.Mat) ([]Prediction, error)

	// Close releases any resources held by the translator.
	Close() error
}

// Best returns the highest-scoring prediction at or above minScore.
func Best(preds []Prediction, minScore float64) (Prediction, bool) {
	var best Prediction
	found := false
	for _, p := range preds {
		if p.Score < minScore {
			continue
		}
		if !found || p.Score > best.Score {
			best = p
			found = true
		}
	}
	return best, found
}
