package translate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrModelNotFound is returned when a requested model cannot be found.
var ErrModelNotFound = errors.New("model not found")

// Manifest describes a model's metadata, read from its model.json.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Labels      []string `json:"labels,omitempty"`
}

// Model is a discovered model with its manifest and location.
type Model struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Catalog discovers and hands out models. Each subdirectory of the
// models directory holding a model.json manifest is one model.
type Catalog struct {
	modelsDir string
	models    map[string]*Model
	mu        sync.RWMutex
}

// NewCatalog creates a Catalog over the given models directory.
func NewCatalog(modelsDir string) *Catalog {
	return &Catalog{
		modelsDir: modelsDir,
		models:    make(map[string]*Model),
	}
}

// Discover rescans the models directory. A missing directory is not an
// error; it just leaves the catalog empty. Entries without a readable,
// valid model.json are skipped.
func (c *Catalog) Discover() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.models = make(map[string]*Model)

	info, err := os.Stat(c.modelsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(c.modelsDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		modelPath := filepath.Join(c.modelsDir, entry.Name())
		manifestPath := filepath.Join(modelPath, "model.json")

		manifestData, err := os.ReadFile(manifestPath)
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(manifestData, &manifest); err != nil {
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			continue
		}

		c.models[manifest.Name] = &Model{
			Manifest:   manifest,
			Path:       modelPath,
			Executable: filepath.Join(modelPath, manifest.Executable),
		}
	}

	return nil
}

// Get returns a model by name.
// Returns ErrModelNotFound if the model does not exist.
func (c *Catalog) Get(name string) (*Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	model, ok := c.models[name]
	if !ok {
		return nil, ErrModelNotFound
	}

	return model, nil
}

// List returns all discovered models sorted by name.
func (c *Catalog) List() []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := make([]*Model, 0, len(c.models))
	for _, model := range c.models {
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Manifest.Name < models[j].Manifest.Name
	})

	return models
}

// ModelsDir returns the directory the catalog scans.
func (c *Catalog) ModelsDir() string {
	return c.modelsDir
}
