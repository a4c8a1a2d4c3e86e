// Package store holds the declared desired state for every resource instance.
package store

import (
	"fmt"
	"sync"

	"github.com/strata-io/strata/internal/ir"
)

// DuplicateDeclarationError reports two descriptors claiming the same logical
// name with conflicting types.
type DuplicateDeclarationError struct {
	Name         string
	ExistingType string
	NewType      string
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("duplicate declaration of %q: already declared as %s, redeclared as %s",
		e.Name, e.ExistingType, e.NewType)
}

// Store is an in-memory descriptor store. Declaration order is preserved; the
// plan builder uses it as the deterministic tie-breaker for topological sorting.
type Store struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]*ir.Descriptor
}

func New() *Store {
	return &Store{
		byName: make(map[string]*ir.Descriptor),
	}
}

// Put stores a descriptor, replacing any existing descriptor of the same
// logical name and type. A name collision across types is a
// DuplicateDeclarationError.
func (s *Store) Put(d *ir.Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has no logical name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byName[d.Name]; ok {
		if existing.Type != d.Type {
			return &DuplicateDeclarationError{
				Name:         d.Name,
				ExistingType: existing.Type,
				NewType:      d.Type,
			}
		}
		// Replacement keeps the original declaration position.
		s.byName[d.Name] = d.Clone()
		return nil
	}

	s.byName[d.Name] = d.Clone()
	s.order = append(s.order, d.Name)
	return nil
}

// All returns the current descriptor set in declaration order.
func (s *Store) All() []*ir.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ir.Descriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// Get returns the descriptor for a logical name, or nil.
func (s *Store) Get(name string) *ir.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[name]
}

// Len returns the number of stored descriptors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
