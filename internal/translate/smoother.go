package translate

import (
	"math"
	"sync"

	"github.com/nmurali/signbridge/internal/config"
)

// Smoother turns noisy per-frame predictions into stable glosses. It
// keeps a sliding window of recent top glosses and reports a gloss only
// once it dominates the window, then reports nothing until the stable
// gloss changes.
type Smoother struct {
	mu       sync.Mutex
	window   int
	minCount int
	minScore float64
	history  []string
	current  string
}

// NewSmoother builds a smoother from the app's translation settings.
func NewSmoother(cfg config.TranslationConfig) *Smoother {
	window := cfg.SmoothWindow
	if window < 1 {
		window = 1
	}
	minCount := int(math.Ceil(cfg.MinAgreement * float64(window)))
	if minCount < 1 {
		minCount = 1
	}
	return &Smoother{
		window:   window,
		minCount: minCount,
		minScore: cfg.MinScore,
	}
}

// Observe feeds one frame's predictions into the window. It returns a
// gloss and true exactly when the window's dominant gloss changes to a
// new stable value. Frames with no qualifying prediction count against
// the window as blanks.
func (s *Smoother) Observe(preds []Prediction) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	top := ""
	if best, ok := Best(preds, s.minScore); ok {
		top = best.Gloss
	}

	s.history = append(s.history, top)
	if len(s.history) > s.window {
		s.history = s.history[1:]
	}

	modal, count := s.mode()
	if count < s.minCount {
		s.current = ""
		return "", false
	}
	if modal == s.current {
		return "", false
	}

	s.current = modal
	return modal, true
}

// Current returns the gloss the window currently agrees on, or empty.
func (s *Smoother) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reset clears the window, for example when the camera restarts.
func (s *Smoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = s.history[:0]
	s.current = ""
}

// mode returns the most frequent non-blank gloss in the window.
func (s *Smoother) mode() (string, int) {
	counts := make(map[string]int, len(s.history))
	modal, best := "", 0
	for _, g := range s.history {
		if g == "" {
			continue
		}
		counts[g]++
		if counts[g] > best {
			modal, best = g, counts[g]
		}
	}
	return modal, best
}
