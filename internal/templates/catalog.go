// Package templates manages the catalog of resume templates users can pick
package templates

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"careerboost/internal/errors"
	"careerboost/internal/types"
	"careerboost/internal/watch"
)

// ErrCodeUnknownTemplate is returned for IDs missing from the catalog
const ErrCodeUnknownTemplate = "UNKNOWN_TEMPLATE"

// defaultCatalog is used when no templates file is configured
var defaultCatalog = []types.Template{
	{ID: "classic", Name: "Classic", Description: "Single column, serif headings, ATS friendly"},
	{ID: "modern", Name: "Modern", Description: "Clean sans-serif layout with accent color"},
	{ID: "minimal", Name: "Minimal", Description: "Plain typography with generous whitespace"},
	{ID: "executive", Name: "Executive", Description: "Two column layout for senior roles", Premium: true},
	{ID: "creative", Name: "Creative", Description: "Sidebar layout with skill bars", Premium: true},
}

type catalogFile struct {
	Default   string           `yaml:"default"`
	Templates []types.Template `yaml:"templates"`
}

// Catalog is the concurrency safe set of available templates
type Catalog struct {
	mu        sync.RWMutex
	path      string
	items     []types.Template
	byID      map[string]types.Template
	defaultID string
	loadedAt  time.Time
	watcher   *watch.FileWatcher
	logger    *errors.Logger
}

// NewDefault returns the built-in catalog
func NewDefault(defaultID string) *Catalog {
	c := &Catalog{logger: errors.NewNopLogger()}
	if err := c.set(catalogFile{Default: defaultID, Templates: defaultCatalog}); err != nil {
		_ = c.set(catalogFile{Templates: defaultCatalog})
	}
	return c
}

// Load reads the catalog from path, or returns the built-in one when path
// is empty.
func Load(path, defaultID string, logger *errors.Logger) (*Catalog, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if path == "" {
		c := NewDefault(defaultID)
		c.logger = logger
		return c, nil
	}
	c := &Catalog{path: path, logger: logger}
	if err := c.reload(defaultID); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes a YAML catalog
func Parse(data []byte) ([]types.Template, string, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to parse templates file", err)
	}
	if err := validate(file); err != nil {
		return nil, "", err
	}
	return file.Templates, file.Default, nil
}

func validate(file catalogFile) error {
	if len(file.Templates) == 0 {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "templates file lists no templates", nil)
	}
	seen := make(map[string]bool, len(file.Templates))
	for i, t := range file.Templates {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("template #%d has no id", i+1), nil)
		}
		if seen[id] {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("duplicate template id %q", id), nil)
		}
		seen[id] = true
	}
	if file.Default != "" && !seen[file.Default] {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("default template %q is not in the catalog", file.Default), nil)
	}
	return nil
}

func (c *Catalog) reload(fallbackDefault string) error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to read templates file", err).
			WithContext("path", c.path)
	}
	items, defaultID, err := Parse(data)
	if err != nil {
		return err
	}
	if defaultID == "" {
		defaultID = fallbackDefault
	}
	return c.set(catalogFile{Default: defaultID, Templates: items})
}

func (c *Catalog) set(file catalogFile) error {
	if err := validate(file); err != nil {
		return err
	}
	byID := make(map[string]types.Template, len(file.Templates))
	items := make([]types.Template, 0, len(file.Templates))
	for _, t := range file.Templates {
		t.ID = strings.TrimSpace(t.ID)
		if t.Name == "" {
			t.Name = t.ID
		}
		byID[t.ID] = t
		items = append(items, t)
	}
	defaultID := file.Default
	if defaultID == "" {
		defaultID = items[0].ID
	}

	c.mu.Lock()
	c.items = items
	c.byID = byID
	c.defaultID = defaultID
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// List returns the templates in catalog order
func (c *Catalog) List() []types.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.Template(nil), c.items...)
}

// Get returns the template with id
func (c *Catalog) Get(id string) (types.Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[id]
	if !ok {
		return types.Template{}, errors.NewValidationError(ErrCodeUnknownTemplate,
			fmt.Sprintf("unknown template %q", id), nil).WithContext("template", id)
	}
	return t, nil
}

// Default returns the ID assigned to new resumes
func (c *Catalog) Default() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultID
}

// LoadedAt returns when the catalog was last (re)loaded
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Watch reloads the catalog whenever its file changes. A file that fails
// to parse keeps the previous catalog. onReload may be nil.
func (c *Catalog) Watch(debounce time.Duration, onReload func(err error)) error {
	if c.path == "" {
		return nil
	}
	w := watch.New("templates", []string{c.path}, debounce, func() {
		err := c.reload(c.Default())
		if err != nil {
			c.logger.LogError(err, "Failed to reload templates, keeping previous catalog", "path", c.path)
		} else {
			c.logger.Info("Templates reloaded", "path", c.path, "count", len(c.List()))
		}
		if onReload != nil {
			onReload(err)
		}
	}, c.logger)
	if err := w.Start(); err != nil {
		return err
	}
	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()
	return nil
}

// Close stops the file watcher, if any
func (c *Catalog) Close() error {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}
