package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nmurali/signbridge/internal/store"
)

// newTestStore creates a Store backed by a temporary database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTranslation(t *testing.T, s *store.Store, gloss string, score float64) {
	t.Helper()

	tr := &store.Translation{ID: "id-" + gloss, Gloss: gloss, Score: score, Model: "asl-v1"}
	if err := s.Translations().Create(tr); err != nil {
		t.Fatalf("failed to create translation: %v", err)
	}
}

func TestTranslationsHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewTranslationsHandler(s)

	createTranslation(t, s, "hello", 0.92)
	createTranslation(t, s, "thank_you", 0.88)

	req := httptest.NewRequest(http.MethodGet, "/api/translations", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response listTranslationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Translations) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(response.Translations))
	}

	// Newest first.
	if response.Translations[0].Gloss != "thank_you" {
		t.Errorf("first gloss = %q, want %q", response.Translations[0].Gloss, "thank_you")
	}
	if response.Translations[1].Gloss != "hello" {
		t.Errorf("second gloss = %q, want %q", response.Translations[1].Gloss, "hello")
	}
}

func TestTranslationsHandler_Limit(t *testing.T) {
	s := newTestStore(t)
	handler := NewTranslationsHandler(s)

	createTranslation(t, s, "hello", 0.92)
	createTranslation(t, s, "please", 0.81)
	createTranslation(t, s, "goodbye", 0.77)

	req := httptest.NewRequest(http.MethodGet, "/api/translations?limit=1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listTranslationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Translations) != 1 {
		t.Fatalf("expected 1 translation, got %d", len(response.Translations))
	}
	if response.Translations[0].Gloss != "goodbye" {
		t.Errorf("gloss = %q, want %q", response.Translations[0].Gloss, "goodbye")
	}
}

func TestTranslationsHandler_InvalidLimit(t *testing.T) {
	handler := NewTranslationsHandler(newTestStore(t))

	for _, limit := range []string{"abc", "0", "-1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/translations?limit="+limit, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: expected status %d, got %d", limit, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestTranslationsHandler_EmptyList(t *testing.T) {
	handler := NewTranslationsHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/translations", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	// An empty history is a JSON array, not null.
	if !strings.Contains(rec.Body.String(), `"translations":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestTranslationsHandler_MethodNotAllowed(t *testing.T) {
	handler := NewTranslationsHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodPost, "/api/translations", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
