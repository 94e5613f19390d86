package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nmurali/signbridge/internal/store"
)

func createSnapshot(t *testing.T, s *store.Store, id string) {
	t.Helper()

	snap := &store.Snapshot{ID: id, Path: "/tmp/" + id + ".jpg", Width: 640, Height: 480}
	if err := s.Snapshots().Create(snap); err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}
}

func TestSnapshotsHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSnapshotsHandler(s)

	createSnapshot(t, s, "snap-1")
	createSnapshot(t, s, "snap-2")

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listSnapshotsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(response.Snapshots))
	}

	// Newest first.
	if response.Snapshots[0].ID != "snap-2" {
		t.Errorf("first id = %q, want %q", response.Snapshots[0].ID, "snap-2")
	}
}

func TestSnapshotsHandler_EmptyList(t *testing.T) {
	handler := NewSnapshotsHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	if !strings.Contains(rec.Body.String(), `"snapshots":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestSnapshotsHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewSnapshotsHandler(s)

	createSnapshot(t, s, "snap-1")

	req := httptest.NewRequest(http.MethodDelete, "/api/snapshots/snap-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	remaining, err := s.Snapshots().List()
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected 0 snapshots after delete, got %d", len(remaining))
	}
}

func TestSnapshotsHandler_Delete_NotFound(t *testing.T) {
	handler := NewSnapshotsHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodDelete, "/api/snapshots/non-existent", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSnapshotsHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSnapshotsHandler(newTestStore(t))

	t.Run("collection rejects DELETE", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/snapshots", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})

	t.Run("item rejects GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/snapshots/snap-1", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}
