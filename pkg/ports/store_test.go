package ports_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/ports"
)

// MockStore is an in-memory implementation of ManifestStore for testing purposes.
type MockStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]byte)}
}

func (m *MockStore) Save(ctx context.Context, key string, manifest *domain.Manifest) error {
	// Serialize to avoid aliasing the caller's slices
	data, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *MockStore) Load(ctx context.Context, key string) (*domain.Manifest, error) {
	m.mu.Lock()
	data, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrManifestNotFound
	}
	var manifest domain.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func TestManifestStore_Contract(t *testing.T) {
	ports.RunManifestStoreContract(t, NewMockStore(), func(name string) string { return name })
}
