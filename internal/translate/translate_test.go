package translate

import (
	"errors"
	"testing"
)

func TestBest(t *testing.T) {
	tests := []struct {
		name     string
		preds    []Prediction
		minScore float64
		want     string
		wantOK   bool
	}{
		{
			name:   "empty predictions",
			preds:  nil,
			wantOK: false,
		},
		{
			name:     "all below threshold",
			preds:    []Prediction{{Gloss: "hello", Score: 0.2}, {Gloss: "yes", Score: 0.4}},
			minScore: 0.5,
			wantOK:   false,
		},
		{
			name:     "picks highest score regardless of order",
			preds:    []Prediction{{Gloss: "yes", Score: 0.6}, {Gloss: "hello", Score: 0.9}},
			minScore: 0.5,
			want:     "hello",
			wantOK:   true,
		},
		{
			name:     "threshold is inclusive",
			preds:    []Prediction{{Gloss: "hello", Score: 0.5}},
			minScore: 0.5,
			want:     "hello",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Best(tt.preds, tt.minScore)
			if ok != tt.wantOK {
				t.Fatalf("Best() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Gloss != tt.want {
				t.Errorf("Best() gloss = %q, want %q", got.Gloss, tt.want)
			}
		})
	}
}

func TestMock(t *testing.T) {
	t.Run("returns empty predictions by default", func(t *testing.T) {
		mock := NewMock()

		preds, err := mock.Translate(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if preds != nil {
			t.Errorf("expected nil predictions, got %v", preds)
		}
	})

	t.Run("returns configured predictions", func(t *testing.T) {
		mock := NewMock()
		mock.SetPredictions(HelloPredictions())

		preds, err := mock.Translate(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(preds) != 2 {
			t.Fatalf("expected 2 predictions, got %d", len(preds))
		}
		if preds[0].Gloss != "hello" {
			t.Errorf("expected top gloss hello, got %q", preds[0].Gloss)
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMock()

		expectedErr := errors.New("translation failed")
		mock.SetError(expectedErr)

		preds, err := mock.Translate(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if preds != nil {
			t.Errorf("expected nil predictions when error is set, got %v", preds)
		}
	})

	t.Run("counts calls", func(t *testing.T) {
		mock := NewMock()

		mock.Translate(nil)
		mock.Translate(nil)

		if got := mock.Calls(); got != 2 {
			t.Errorf("Calls() = %d, want 2", got)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		mock := NewMock()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Translator interface", func(t *testing.T) {
		var _ Translator = (*Mock)(nil)
	})
}
