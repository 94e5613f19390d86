package api

import (
	"net/http"
	"strconv"

	"github.com/nmurali/signbridge/internal/store"
)

// defaultHistoryLimit bounds /api/translations responses when the
// client does not pass an explicit limit.
const defaultHistoryLimit = 50

// TranslationsHandler handles HTTP requests for translation history.
type TranslationsHandler struct {
	store *store.Store
}

// NewTranslationsHandler creates a new TranslationsHandler with the given store.
func NewTranslationsHandler(s *store.Store) *TranslationsHandler {
	return &TranslationsHandler{store: s}
}

type listTranslationsResponse struct {
	Translations []*store.Translation `json:"translations"`
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/translations[?limit=N]
func (h *TranslationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	translations, err := h.store.Translations().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list translations")
		return
	}

	response := listTranslationsResponse{Translations: translations}
	if response.Translations == nil {
		response.Translations = []*store.Translation{}
	}

	writeJSON(w, http.StatusOK, response)
}
