// Package api provides the HTTP API handlers for the SignBridge dashboard.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/nmurali/signbridge/internal/config"
)

// ConfigHandler handles HTTP requests for component configurations.
type ConfigHandler struct {
	registry *config.Registry
}

// NewConfigHandler creates a new ConfigHandler backed by the given registry.
func NewConfigHandler(r *config.Registry) *ConfigHandler {
	return &ConfigHandler{registry: r}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/config/{name}
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/config")
	name = strings.TrimPrefix(name, "/")

	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, name)
	case http.MethodPut:
		h.update(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// get handles GET /api/config/{name} and returns the active configuration.
func (h *ConfigHandler) get(w http.ResponseWriter, r *http.Request, name string) {
	cfg := h.registry.Get(name)
	if cfg == nil {
		writeError(w, http.StatusNotFound, "Config not found")
		return
	}

	writeConfig(w, http.StatusOK, cfg)
}

// update handles PUT /api/config/{name}. The request body is a JSON
// object of schema fields to override on top of the active
// configuration; the result is validated, saved to the registered
// config file, and returned.
func (h *ConfigHandler) update(w http.ResponseWriter, r *http.Request, name string) {
	// JSON numbers decode as float64 and would re-encode as "60.0",
	// which the strict schema decode rejects for int fields. Decode
	// them as json.Number and convert so integers stay integral.
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var overrides map[string]any
	if err := dec.Decode(&overrides); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	for key, value := range overrides {
		overrides[key] = normalizeNumbers(value)
	}

	if h.registry.Get(name) == nil {
		writeError(w, http.StatusNotFound, "Config not found")
		return
	}

	cfg := h.registry.CreateCustom(name, overrides)
	if cfg == nil {
		writeError(w, http.StatusBadRequest, "Invalid config values")
		return
	}

	path, ok := h.registry.GetPath(name + "_config")
	if !ok {
		writeError(w, http.StatusInternalServerError, "No config file registered")
		return
	}
	if !h.registry.Save(cfg, path) {
		writeError(w, http.StatusInternalServerError, "Failed to save config")
		return
	}

	writeConfig(w, http.StatusOK, cfg)
}

// normalizeNumbers walks a decoded JSON value and converts each
// json.Number to int64 when it has no fractional part, float64
// otherwise.
func normalizeNumbers(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case map[string]any:
		for key, value := range n {
			n[key] = normalizeNumbers(value)
		}
		return n
	case []any:
		for i, value := range n {
			n[i] = normalizeNumbers(value)
		}
		return n
	default:
		return v
	}
}

// writeConfig renders a configuration as JSON. Schema structs carry
// yaml tags, so they are marshaled through YAML and converted.
func writeConfig(w http.ResponseWriter, status int, cfg config.Config) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode config")
		return
	}
	data, err := yaml.YAMLToJSON(raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode config")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
