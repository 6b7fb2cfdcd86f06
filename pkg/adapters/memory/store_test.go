package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/stepmesh/pkg/adapters/memory"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunManifestStoreContract(t, store, func(name string) string { return name })
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	m := domain.NewManifest("a.step")
	m.Parts = append(m.Parts, domain.PartRecord{Index: 0, Name: "Body"})
	require.NoError(t, store.Save(ctx, "k", m))

	m.Parts[0].Name = "Changed"
	loaded, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Body", loaded.Parts[0].Name)

	loaded.Parts[0].Name = "Mutated"
	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Body", again.Parts[0].Name)
}

func TestMemoryLocker_Contract(t *testing.T) {
	ports.RunLockerContract(t, memory.NewLocker())
}

func TestMemoryLocker_UnlockTwice(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "out", 0)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx))

	// A second release must not free a lock taken by someone else.
	next, err := locker.Lock(ctx, "out", 0)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))

	waitCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = locker.Lock(waitCtx, "out", 0)
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, next(ctx))
}
