package middleware_test

import (
	"context"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/stretchr/testify/mock"
)

// MockStore is a ManifestStore whose behavior is scripted per test.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, key string, manifest *domain.Manifest) error {
	return m.Called(ctx, key, manifest).Error(0)
}

func (m *MockStore) Load(ctx context.Context, key string) (*domain.Manifest, error) {
	args := m.Called(ctx, key)
	if v := args.Get(0); v != nil {
		return v.(*domain.Manifest), args.Error(1)
	}
	return nil, args.Error(1)
}
