package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/ports"
)

type mirrorMiddleware struct {
	next     ports.ManifestStore
	replicas []ports.ManifestStore
}

// NewMirrorMiddleware creates a middleware that publishes every saved manifest to the
// replicas after the wrapped store accepted it.
//
// The wrapped store stays authoritative: when it fails nothing is published. Replica
// failures are joined into the returned error and do not undo the primary write.
// Load reads the wrapped store and falls back to the replicas in order when it has
// no manifest under the key.
func NewMirrorMiddleware(replicas ...ports.ManifestStore) Middleware {
	return func(next ports.ManifestStore) ports.ManifestStore {
		return &mirrorMiddleware{
			next:     next,
			replicas: replicas,
		}
	}
}

func (m *mirrorMiddleware) Save(ctx context.Context, key string, manifest *domain.Manifest) error {
	if err := m.next.Save(ctx, key, manifest); err != nil {
		return err
	}

	var errs []error
	for i, r := range m.replicas {
		if err := r.Save(ctx, key, manifest); err != nil {
			errs = append(errs, fmt.Errorf("replica %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("manifest saved but not published: %w", errors.Join(errs...))
	}
	return nil
}

func (m *mirrorMiddleware) Load(ctx context.Context, key string) (*domain.Manifest, error) {
	manifest, err := m.next.Load(ctx, key)
	if err == nil || !errors.Is(err, domain.ErrManifestNotFound) {
		return manifest, err
	}
	for _, r := range m.replicas {
		manifest, rerr := r.Load(ctx, key)
		if rerr == nil {
			return manifest, nil
		}
		if !errors.Is(rerr, domain.ErrManifestNotFound) {
			return nil, rerr
		}
	}
	return nil, err
}
