// Package server provides the HTTP dashboard for the SignBridge
// translation service.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/nmurali/signbridge/internal/config"
	"github.com/nmurali/signbridge/internal/logging"
	"github.com/nmurali/signbridge/internal/server/api"
	"github.com/nmurali/signbridge/internal/store"
)

// Status is one snapshot of the translation pipeline. It is served on
// /api/status and broadcast over /api/events.
type Status struct {
	CameraOpen      bool    `json:"camera_open"`
	DeviceID        int     `json:"device_id"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             float64 `json:"fps"`
	FramesProcessed uint64  `json:"frames_processed"`
	LastGloss       string  `json:"last_gloss"`
	Enabled         bool    `json:"enabled"`
	Model           string  `json:"model"`
}

// Pipeline is the server's view of the translation pipeline. The
// pipeline owns the camera; handlers never touch the device directly.
type Pipeline interface {
	// Status reports the pipeline's current state.
	Status() Status

	// LatestJPEG returns the most recent processed frame encoded as
	// JPEG, or ok=false when no frame has been produced yet. The
	// returned slice must not be modified.
	LatestJPEG() ([]byte, bool)

	// TakeSnapshot writes the latest frame to the snapshot directory
	// and records it in the store.
	TakeSnapshot() (*store.Snapshot, error)

	// SetEnabled turns translation on or off.
	SetEnabled(enabled bool)
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Registry  *config.Registry
	Pipeline  Pipeline
	Events    *Hub
	Logger    *slog.Logger
}

// Server is the HTTP server for the SignBridge dashboard.
type Server struct {
	config Config
	logger *slog.Logger
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration. Routes are
// only registered for the dependencies the configuration provides, so
// a server without a pipeline still serves health and history.
func New(config Config) *Server {
	s := &Server{
		config: config,
		logger: logging.WithComponent(config.Logger, "server"),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Pipeline != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
		s.mux.HandleFunc("/api/translation", s.handleTranslation)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Pipeline))
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	if s.config.Registry != nil {
		s.mux.Handle("/api/config/", api.NewConfigHandler(s.config.Registry))
	}

	if s.config.Store != nil {
		s.mux.Handle("/api/translations", api.NewTranslationsHandler(s.config.Store))

		snapshotsHandler := api.NewSnapshotsHandler(s.config.Store)
		s.mux.Handle("/api/snapshots", snapshotsHandler)
		s.mux.Handle("/api/snapshots/", snapshotsHandler)
	}

	// Serve static dashboard files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleStatus handles GET requests to /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.config.Pipeline.Status()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleSnapshot handles POST requests to /api/snapshot and captures
// the latest processed frame to disk.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := s.config.Pipeline.TakeSnapshot()
	if err != nil {
		s.logger.Error("snapshot failed", logging.Err(err))
		http.Error(w, "Failed to take snapshot", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(snapshot)
}

// handleTranslation reports and toggles whether frames are translated.
func (s *Server) handleTranslation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"enabled": s.config.Pipeline.Status().Enabled})

	case http.MethodPost, http.MethodPut:
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		s.config.Pipeline.SetEnabled(req.Enabled)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"enabled": req.Enabled})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
