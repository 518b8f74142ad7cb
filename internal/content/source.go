// Package content loads assessment component definitions.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/question"
)

// Source fetches component definitions by id.
type Source interface {
	FetchComponent(ctx context.Context, id string) (*question.Component, error)
}

// Lister is implemented by sources that can enumerate their components.
type Lister interface {
	List() ([]string, error)
}

// extensions are tried in order when resolving a component file.
var extensions = []string{".yaml", ".yml", ".json"}

// DirSource reads definitions from <dir>/<id>.yaml, .yml or .json.
type DirSource struct {
	fsys fs.FS
}

// NewDirSource returns a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{fsys: os.DirFS(dir)}
}

// NewFSSource returns a source reading from an arbitrary file system.
func NewFSSource(fsys fs.FS) *DirSource {
	return &DirSource{fsys: fsys}
}

func (s *DirSource) FetchComponent(ctx context.Context, id string) (*question.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" || id != filepath.Base(id) {
		return nil, apperr.NotFound("component", id)
	}

	for _, ext := range extensions {
		data, err := fs.ReadFile(s.fsys, id+ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read component %s: %w", id, err)
		}
		comp, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", id, err)
		}
		if comp.ID != id {
			return nil, fmt.Errorf("component %s: file declares id %q", id, comp.ID)
		}
		return comp, nil
	}
	return nil, apperr.NotFound("component", id)
}

// List returns the ids of every component file in the source.
func (s *DirSource) List() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, want := range extensions {
			if ext == want {
				id := e.Name()[:len(e.Name())-len(ext)]
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	return ids, nil
}

// Decode parses a YAML or JSON component document, validates it against
// the component schema and checks that item ids are unique.
//
// Per-item configuration is not checked here. A malformed item still
// loads and is offered to the candidate as skippable.
func Decode(data []byte) (*question.Component, error) {
	// YAML is a superset of JSON, so one decoder serves both.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var parsed any
	if err := json.Unmarshal(normalized, &parsed); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if err := validateDocument(parsed); err != nil {
		return nil, err
	}

	var comp question.Component
	if err := json.Unmarshal(normalized, &comp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	seen := make(map[string]bool, len(comp.Items))
	for _, q := range comp.Items {
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate item id %q", q.ID)
		}
		seen[q.ID] = true
	}
	return &comp, nil
}

// MemorySource serves definitions held in memory.
type MemorySource struct {
	mu         sync.RWMutex
	components map[string]*question.Component
}

// NewMemorySource returns a source holding the given components.
func NewMemorySource(components ...*question.Component) *MemorySource {
	m := &MemorySource{components: make(map[string]*question.Component)}
	for _, c := range components {
		m.Put(c)
	}
	return m
}

// Put adds or replaces a component.
func (m *MemorySource) Put(c *question.Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[c.ID] = c
}

// List returns the ids of the held components, sorted.
func (m *MemorySource) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.components)), nil
}

func (m *MemorySource) FetchComponent(ctx context.Context, id string) (*question.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.components[id]
	if !ok {
		return nil, apperr.NotFound("component", id)
	}
	cp := *c
	cp.Items = append([]question.Question(nil), c.Items...)
	return &cp, nil
}
