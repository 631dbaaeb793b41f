// Package catalog loads and serves the read-only challenge catalog.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fluent-loop/feed-engine/internal/models"
)

// ErrNotFound is returned when a challenge id is not in the catalog.
var ErrNotFound = errors.New("challenge not found")

// Loader holds the loaded challenge definitions. Definitions are
// immutable once loaded; the map itself is guarded so the refresher can
// swap in new content while requests read.
type Loader struct {
	mu         sync.RWMutex
	challenges map[string]*models.Challenge
}

// NewLoader creates an empty catalog loader.
func NewLoader() *Loader {
	return &Loader{
		challenges: make(map[string]*models.Challenge),
	}
}

// LoadFromDir loads all YAML challenge files from a directory and its
// immediate subdirectories. Files that fail to parse or validate are
// logged and skipped; the rest of the catalog still loads.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading challenge catalog", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)

		subMatches, err := filepath.Glob(filepath.Join(dir, "*", pattern))
		if err != nil {
			continue
		}
		files = append(files, subMatches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load challenge", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("challenge catalog loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single challenge definition from a YAML file.
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var c models.Challenge
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if c.ID == "" {
		return fmt.Errorf("challenge id is required")
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("unknown challenge type: %q", c.Type)
	}
	if !c.ConceptArea.IsValid() {
		return fmt.Errorf("unknown concept area: %q", c.ConceptArea)
	}

	l.mu.Lock()
	l.challenges[c.ID] = &c
	l.mu.Unlock()

	slog.Debug("challenge loaded", "id", c.ID, "type", c.Type, "area", c.ConceptArea)
	return nil
}

// Get retrieves a challenge by id.
func (l *Loader) Get(id string) (*models.Challenge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns all loaded challenges.
func (l *Loader) List() []*models.Challenge {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Challenge, 0, len(l.challenges))
	for _, c := range l.challenges {
		result = append(result, c)
	}
	return result
}

// Len returns the number of loaded challenges.
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.challenges)
}

// Add programmatically adds a challenge definition.
func (l *Loader) Add(c *models.Challenge) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.challenges[c.ID] = c
}
