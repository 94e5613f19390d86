// Package config implements the configuration registry: a single place
// that maps component names to schema factories, loaded instances, and
// filesystem paths.
//
// The registry fails soft. Every lookup or load that cannot be satisfied
// is logged and reported as an absence (nil instance, false, or a missing
// path) rather than an error, so callers can always fall back to schema
// defaults and keep running. Device and pipeline errors are the opposite
// and stay hard typed; see the capture package.
package config

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/nmurali/signbridge/internal/logging"
)

// Config is implemented by every registrable schema. Instances are
// validated when the registry constructs them; there is no revalidation
// on field mutation, so treat loaded instances as read-only and go
// through CreateCustom for changes.
type Config interface {
	Validate() error
}

// Registry holds schema factories, cached instances, and symbolic paths
// behind one lock. Construct it with NewRegistry and share the pointer;
// all methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	schemas   map[string]func() Config
	instances map[string]Config
	paths     map[string]string
}

// NewRegistry creates a registry rooted at the given project directory
// and seeds the default path table relative to it.
func NewRegistry(root string, logger *slog.Logger) *Registry {
	r := &Registry{
		logger:    logging.WithComponent(logger, "config"),
		schemas:   make(map[string]func() Config),
		instances: make(map[string]Config),
		paths:     defaultPaths(root),
	}
	r.logger.Info("initialized default paths", slog.Int("count", len(r.paths)))
	return r
}

// RegisterSchema registers a schema factory under name, replacing any
// previous registration. The factory must return a fresh instance
// pre-filled with the schema's defaults; loading overlays file values
// on top of it.
func (r *Registry) RegisterSchema(name string, factory func() Config) {
	r.mu.Lock()
	r.schemas[name] = factory
	r.mu.Unlock()
	r.logger.Debug("registered config schema", slog.String("name", name))
}

// RegisterPath registers a symbolic path under name, replacing any
// previous entry.
func (r *Registry) RegisterPath(name, path string) {
	r.mu.Lock()
	r.paths[name] = path
	r.mu.Unlock()
	r.logger.Debug("registered path", slog.String("name", name), slog.String("path", path))
}

// GetPath returns the path registered under name. A miss is logged and
// reported through ok.
func (r *Registry) GetPath(name string) (string, bool) {
	r.mu.RLock()
	path, ok := r.paths[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("path is not registered", slog.String("name", name))
		return "", false
	}
	return path, true
}

// Paths returns a copy of the symbolic path table.
func (r *Registry) Paths() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make(map[string]string, len(r.paths))
	for name, path := range r.paths {
		paths[name] = path
	}
	return paths
}

// Load reads the configuration for name from its default path, the one
// registered under "{name}_config". The loaded instance replaces any
// cached one. Returns nil after logging when the schema or path is
// unregistered, the file is missing, empty, malformed, does not match
// the schema, or fails validation.
func (r *Registry) Load(name string) Config {
	r.mu.RLock()
	factory, okSchema := r.schemas[name]
	path, okPath := r.paths[name+"_config"]
	r.mu.RUnlock()

	if !okSchema {
		r.logger.Error("configuration schema is not registered", slog.String("name", name))
		return nil
	}
	if !okPath {
		r.logger.Error("no default path for configuration", slog.String("name", name))
		return nil
	}
	return r.load(name, factory, path)
}

// LoadFrom is Load with an explicit file path instead of the registered
// default. The result is still cached under name.
func (r *Registry) LoadFrom(name, path string) Config {
	r.mu.RLock()
	factory, okSchema := r.schemas[name]
	r.mu.RUnlock()

	if !okSchema {
		r.logger.Error("configuration schema is not registered", slog.String("name", name))
		return nil
	}
	return r.load(name, factory, path)
}

func (r *Registry) load(name string, factory func() Config, path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Error("configuration file not found", slog.String("path", path))
		} else {
			r.logger.Error("failed to read configuration file", slog.String("path", path), logging.Err(err))
		}
		return nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		r.logger.Error("empty or invalid configuration file", slog.String("path", path))
		return nil
	}

	// Two-step decode: parse to a generic document first so a lone null
	// is rejected instead of silently producing a defaults-only instance.
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		r.logger.Error("failed to parse configuration file", slog.String("path", path), logging.Err(err))
		return nil
	}
	if doc == nil {
		r.logger.Error("empty or invalid configuration file", slog.String("path", path))
		return nil
	}

	cfg := factory()
	if err := yaml.UnmarshalWithOptions(raw, cfg, yaml.Strict()); err != nil {
		r.logger.Error("configuration does not match schema",
			slog.String("name", name), slog.String("path", path), logging.Err(err))
		return nil
	}
	if err := cfg.Validate(); err != nil {
		r.logger.Error("invalid configuration", slog.String("name", name), logging.Err(err))
		return nil
	}

	r.mu.Lock()
	r.instances[name] = cfg
	r.mu.Unlock()

	r.logger.Debug("loaded configuration", slog.String("name", name), slog.String("path", path))
	return cfg
}

// Get returns the cached instance for name, loading it from the default
// path on first use. The cache is only refreshed by an explicit Load.
func (r *Registry) Get(name string) Config {
	r.mu.RLock()
	cfg, ok := r.instances[name]
	r.mu.RUnlock()
	if ok {
		return cfg
	}
	return r.Load(name)
}

// CreateCustom builds a new instance of name's schema from the current
// base configuration with overrides applied on top. Override keys that
// do not exist in the schema are ignored with a warning, matching the
// registry's soft contract. The result is validated but not cached, so
// the base instance keeps serving until the caller decides otherwise.
func (r *Registry) CreateCustom(name string, overrides map[string]any) Config {
	base := r.Get(name)
	if base == nil {
		r.logger.Error("failed to get base configuration", slog.String("name", name))
		return nil
	}

	r.mu.RLock()
	factory := r.schemas[name]
	r.mu.RUnlock()

	fields, err := fieldMap(base)
	if err != nil {
		r.logger.Error("failed to create custom configuration", slog.String("name", name), logging.Err(err))
		return nil
	}

	var invalid []string
	for key, value := range overrides {
		if _, ok := fields[key]; ok {
			fields[key] = value
		} else {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		r.logger.Warn("ignoring invalid configuration parameters",
			slog.String("name", name), slog.String("params", strings.Join(invalid, ", ")))
	}

	merged, err := yaml.Marshal(fields)
	if err != nil {
		r.logger.Error("failed to create custom configuration", slog.String("name", name), logging.Err(err))
		return nil
	}
	cfg := factory()
	if err := yaml.UnmarshalWithOptions(merged, cfg, yaml.Strict()); err != nil {
		r.logger.Error("failed to create custom configuration", slog.String("name", name), logging.Err(err))
		return nil
	}
	if err := cfg.Validate(); err != nil {
		r.logger.Error("invalid custom configuration", slog.String("name", name), logging.Err(err))
		return nil
	}

	r.logger.Debug("created custom configuration", slog.String("name", name))
	return cfg
}

// Save writes cfg as YAML to path, creating parent directories as
// needed. Returns false after logging on any failure.
func (r *Registry) Save(cfg Config, path string) bool {
	if cfg == nil {
		r.logger.Error("cannot save nil configuration", slog.String("path", path))
		return false
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		r.logger.Error("failed to save configuration", slog.String("path", path), logging.Err(err))
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.logger.Error("failed to save configuration", slog.String("path", path), logging.Err(err))
		return false
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		r.logger.Error("failed to save configuration", slog.String("path", path), logging.Err(err))
		return false
	}
	r.logger.Info("saved configuration", slog.String("path", path))
	return true
}

// Typed fetches the configuration under name and asserts it to a
// concrete schema type. ok is false when the configuration is absent or
// registered with a different schema.
func Typed[T Config](r *Registry, name string) (T, bool) {
	t, ok := r.Get(name).(T)
	return t, ok
}

// fieldMap round-trips a configuration through YAML to get its fields
// as a generic map keyed by the serialized names.
func fieldMap(cfg Config) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
