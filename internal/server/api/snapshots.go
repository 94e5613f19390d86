package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nmurali/signbridge/internal/store"
)

// SnapshotsHandler handles HTTP requests for saved snapshots.
type SnapshotsHandler struct {
	store *store.Store
}

// NewSnapshotsHandler creates a new SnapshotsHandler with the given store.
func NewSnapshotsHandler(s *store.Store) *SnapshotsHandler {
	return &SnapshotsHandler{store: s}
}

type listSnapshotsResponse struct {
	Snapshots []*store.Snapshot `json:"snapshots"`
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/snapshots or /api/snapshots/{id}
func (h *SnapshotsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/snapshots")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/snapshots
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	// Item endpoint: /api/snapshots/{id}
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, r, path)
}

// list handles GET /api/snapshots and returns all snapshots, newest first.
func (h *SnapshotsHandler) list(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.store.Snapshots().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}

	response := listSnapshotsResponse{Snapshots: snapshots}
	if response.Snapshots == nil {
		response.Snapshots = []*store.Snapshot{}
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/snapshots/{id} and removes the record.
// TODO: remove the image file as well; needs a Snapshots.GetByID to
// look up the path first.
func (h *SnapshotsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Snapshots().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Snapshot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete snapshot")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
