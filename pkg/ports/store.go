package ports

import (
	"context"

	"github.com/aretw0/stepmesh/pkg/domain"
)

// ManifestStore persists export manifests.
type ManifestStore interface {
	// Save stores the manifest under key, replacing any previous one.
	Save(ctx context.Context, key string, manifest *domain.Manifest) error

	// Load retrieves the manifest stored under key.
	// Returns domain.ErrManifestNotFound if there is none.
	Load(ctx context.Context, key string) (*domain.Manifest, error)
}
