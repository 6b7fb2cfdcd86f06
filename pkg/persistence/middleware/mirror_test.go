package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/stepmesh/pkg/adapters/memory"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/persistence/middleware"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMirror_Contract(t *testing.T) {
	store := middleware.NewMirrorMiddleware(memory.NewStore())(memory.NewStore())
	ports.RunManifestStoreContract(t, store, func(name string) string { return name })
}

func TestMirror_Save(t *testing.T) {
	ctx := context.Background()
	m := domain.NewManifest("/in/a.step")

	t.Run("Publishes To Every Replica", func(t *testing.T) {
		primary, r1, r2 := memory.NewStore(), memory.NewStore(), memory.NewStore()
		store := middleware.NewMirrorMiddleware(r1, r2)(primary)

		require.NoError(t, store.Save(ctx, "out/manifest.json", m))
		for _, s := range []ports.ManifestStore{primary, r1, r2} {
			loaded, err := s.Load(ctx, "out/manifest.json")
			require.NoError(t, err)
			assert.Equal(t, m, loaded)
		}
	})

	t.Run("Primary Failure Publishes Nothing", func(t *testing.T) {
		primary := new(MockStore)
		primary.On("Save", mock.Anything, "k", m).Return(errors.New("disk full"))
		replica := memory.NewStore()

		err := middleware.NewMirrorMiddleware(replica)(primary).Save(ctx, "k", m)
		assert.ErrorContains(t, err, "disk full")
		_, err = replica.Load(ctx, "k")
		assert.ErrorIs(t, err, domain.ErrManifestNotFound)
		primary.AssertExpectations(t)
	})

	t.Run("Replica Failure Keeps Primary", func(t *testing.T) {
		primary := memory.NewStore()
		replica := new(MockStore)
		replica.On("Save", mock.Anything, "k", m).Return(errors.New("connection refused"))

		err := middleware.NewMirrorMiddleware(replica)(primary).Save(ctx, "k", m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not published")
		assert.Contains(t, err.Error(), "connection refused")

		loaded, lerr := primary.Load(ctx, "k")
		require.NoError(t, lerr)
		assert.Equal(t, m, loaded)
	})
}

func TestMirror_LoadFallsBackToReplicas(t *testing.T) {
	ctx := context.Background()
	primary, replica := memory.NewStore(), memory.NewStore()
	store := middleware.NewMirrorMiddleware(replica)(primary)

	require.NoError(t, replica.Save(ctx, "k", domain.NewManifest("/in/remote.step")))
	loaded, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "/in/remote.step", loaded.Source)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrManifestNotFound)

	broken := new(MockStore)
	broken.On("Load", mock.Anything, "k").Return(nil, errors.New("permission denied"))
	_, err = middleware.NewMirrorMiddleware(replica)(broken).Load(ctx, "k")
	assert.ErrorContains(t, err, "permission denied", "only a missing manifest falls back")
}
