// Package registry maps document type names to the loaders that fetch them.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/models"
)

// Loader loads a document instance by id
type Loader interface {
	Load(ctx context.Context, id string) (*models.Document, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context, id string) (*models.Document, error)

// Load calls f(ctx, id)
func (f LoaderFunc) Load(ctx context.Context, id string) (*models.Document, error) {
	return f(ctx, id)
}

// Registry is a lookup table from document type to loader
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register binds a loader to a document type, replacing any previous binding
func (r *Registry) Register(docType string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[docType] = loader
}

// Resolve loads the document (docType, id)
func (r *Registry) Resolve(ctx context.Context, docType, id string) (*models.Document, error) {
	r.mu.RLock()
	loader, ok := r.loaders[docType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDocType, docType)
	}
	return loader.Load(ctx, id)
}

// Types returns the registered document types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Has reports whether a loader is registered for docType
func (r *Registry) Has(docType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaders[docType]
	return ok
}
