package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/stepmesh/pkg/adapters/redis"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client)
	ports.RunManifestStoreContract(t, store, func(name string) string { return name })
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "job-1", domain.NewManifest("a.step")))
	_, err := store.Load(ctx, "job-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "job-1")
	assert.ErrorIs(t, err, domain.ErrManifestNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "out/manifest.json", domain.NewManifest("a.step")))
	assert.True(t, mr.Exists("custom:app:manifest:out/manifest.json"), "Expected key with custom prefix to exist")

	raw, err := mr.Get("custom:app:manifest:out/manifest.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"a.step","parts":[]}`, raw)
	assert.Zero(t, mr.TTL("custom:app:manifest:out/manifest.json"), "no TTL by default")
}

func TestRedisStore_Errors(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	mr.Set(redis.DefaultPrefix+"manifest:bad", "not json")
	_, err := store.Load(ctx, "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrManifestNotFound)

	mr.Close()
	err = store.Save(ctx, "down", domain.NewManifest("a.step"))
	assert.Error(t, err)
	_, err = store.Load(ctx, "down")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrManifestNotFound)
}
