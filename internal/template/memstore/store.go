// Package memstore provides an in-memory template store. It is used by the
// CLI binary and by tests; data is lost on process exit. For persistence,
// use the BigQuery-backed store.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/statement-pipeline/internal/model"
	"github.com/dvloznov/statement-pipeline/internal/template"
)

// Store keeps templates in a mutex-guarded map. It is safe for concurrent
// use.
type Store struct {
	mu        sync.RWMutex
	templates map[string]model.Template
	order     []string
}

// NewStore creates an empty in-memory template store.
func NewStore() *Store {
	return &Store{templates: make(map[string]model.Template)}
}

// LoadAll returns all stored templates in insertion order.
func (s *Store) LoadAll(ctx context.Context) ([]model.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Template, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.templates[id])
	}
	return out, nil
}

// Save stores a new template. Saving an existing id overwrites it in place.
func (s *Store) Save(ctx context.Context, t *model.Template) error {
	if t.ID == "" {
		return fmt.Errorf("template ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.templates[t.ID] = *t
	return nil
}

// Update replaces an existing template.
func (s *Store) Update(ctx context.Context, t *model.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.ID]; !exists {
		return fmt.Errorf("template not found: %s", t.ID)
	}
	s.templates[t.ID] = *t
	return nil
}

// Ensure Store implements the template store interface.
var _ template.Store = (*Store)(nil)
