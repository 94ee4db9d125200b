package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRegistry is wrapped by every registry validation failure.
var ErrInvalidRegistry = errors.New("invalid model registry")

// Registry is the ordered, immutable set of models served by the backend.
// It is safe for concurrent use since nothing mutates it after construction.
type Registry struct {
	models []ModelDescriptor
	index  map[string]int
}

// NewRegistry validates descs and builds a registry preserving their order.
func NewRegistry(descs []ModelDescriptor) (*Registry, error) {
	r := &Registry{
		models: make([]ModelDescriptor, 0, len(descs)),
		index:  make(map[string]int, len(descs)),
	}
	for i, d := range descs {
		if err := validate(d); err != nil {
			return nil, fmt.Errorf("%w: model #%d: %v", ErrInvalidRegistry, i, err)
		}
		if _, dup := r.index[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate model id %q", ErrInvalidRegistry, d.ID)
		}
		r.index[d.ID] = len(r.models)
		r.models = append(r.models, d)
	}
	return r, nil
}

func validate(d ModelDescriptor) error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("id is required")
	}
	if d.EmbeddingDim <= 0 {
		return fmt.Errorf("%s: embedding_dim must be > 0, got %d", d.ID, d.EmbeddingDim)
	}
	if len(d.Modalities) == 0 {
		return fmt.Errorf("%s: modalities must not be empty", d.ID)
	}
	for _, m := range d.Modalities {
		if !m.Valid() {
			return fmt.Errorf("%s: unknown modality %q", d.ID, m)
		}
	}
	if d.MaxBatch != nil && *d.MaxBatch <= 0 {
		return fmt.Errorf("%s: max_batch must be > 0, got %d", d.ID, *d.MaxBatch)
	}
	return nil
}

// Lookup returns the model with the given id.
func (r *Registry) Lookup(id string) (ModelDescriptor, bool) {
	i, ok := r.index[id]
	if !ok {
		return ModelDescriptor{}, false
	}
	return r.models[i], true
}

// Models returns the descriptors in registry order.
func (r *Registry) Models() []ModelDescriptor {
	out := make([]ModelDescriptor, len(r.models))
	copy(out, r.models)
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}

// LoadRegistry reads a registry file. Files ending in .yaml or .yml are parsed
// as YAML; everything else is parsed as a JSON array of descriptors.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("model registry not found: %s", path)
		}
		return nil, fmt.Errorf("reading model registry: %w", err)
	}

	descs, err := parseRegistry(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidRegistry, path, err)
	}
	return NewRegistry(descs)
}

func parseRegistry(path string, data []byte) ([]ModelDescriptor, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.New("file is empty")
	}
	var descs []ModelDescriptor
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &descs); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &descs); err != nil {
			return nil, err
		}
	}
	if descs == nil {
		return nil, errors.New("expected a list of models")
	}
	return descs, nil
}
