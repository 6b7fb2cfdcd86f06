package memory

import (
	"context"
	"sync"

	"github.com/aretw0/stepmesh/pkg/domain"
)

// Store implements ports.ManifestStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Manifest
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Manifest),
	}
}

// Save keeps a copy of the manifest so later caller mutations do not leak in.
func (s *Store) Save(ctx context.Context, key string, manifest *domain.Manifest) error {
	copied := clone(manifest)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Load returns a copy of the stored manifest.
func (s *Store) Load(ctx context.Context, key string) (*domain.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data[key]
	if !ok {
		return nil, domain.ErrManifestNotFound
	}
	return clone(m), nil
}

// PartRecord holds only values, so copying the slice is a deep copy.
func clone(m *domain.Manifest) *domain.Manifest {
	ret := *m
	ret.Parts = make([]domain.PartRecord, len(m.Parts))
	copy(ret.Parts, m.Parts)
	return &ret
}
