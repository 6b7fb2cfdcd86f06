package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunManifestStoreContract runs a suite of tests to verify that a ManifestStore implementation
// adheres to the defined interface contract. keyFor maps a short name to a key valid for the store.
func RunManifestStoreContract(t *testing.T, store ManifestStore, keyFor func(name string) string) {
	ctx := context.Background()
	key := keyFor("contract-" + time.Now().Format("20060102150405"))

	t.Run("Save and Load", func(t *testing.T) {
		m := domain.NewManifest("/models/assembly.step")
		bbox := domain.BoundBox{Min: domain.Vec3{0, 0, 0}, Max: domain.Vec3{10, 20, 30}}
		m.Parts = append(m.Parts,
			domain.NewPartRecord(0, "Frame", domain.PartFileName(0, "Frame"), bbox, 8, 12),
			domain.NewPartRecord(2, "Gear Wheel", domain.PartFileName(2, "Gear Wheel"), bbox, 120, 236),
		)

		require.NoError(t, store.Save(ctx, key, m), "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, m, loaded)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, domain.NewManifest("/models/other.step")))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "/models/other.step", loaded.Source)
		assert.NotNil(t, loaded.Parts, "empty parts must load as an empty list")
		assert.Empty(t, loaded.Parts)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, keyFor("missing-"+time.Now().Format("150405.000")))
		assert.ErrorIs(t, err, domain.ErrManifestNotFound)
	})
}

// RunLockerContract verifies mutual exclusion and release semantics of a Locker implementation.
func RunLockerContract(t *testing.T, locker Locker) {
	ctx := context.Background()

	t.Run("Lock and Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-a", 5*time.Second)
		require.NoError(t, err)
		require.NotNil(t, unlock)
		require.NoError(t, unlock(ctx))

		// The key is free again.
		unlock, err = locker.Lock(ctx, "contract-a", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Contention", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-b", 5*time.Second)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "contract-b", 5*time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "second holder must block until the deadline")

		other, err := locker.Lock(ctx, "contract-c", 5*time.Second)
		require.NoError(t, err, "distinct keys must not contend")
		require.NoError(t, other(ctx))

		require.NoError(t, unlock(ctx))
		unlock, err = locker.Lock(ctx, "contract-b", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})
}
