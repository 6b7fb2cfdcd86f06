package file_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/stepmesh/pkg/adapters/file"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(afero.NewMemMapFs(), "/out")
	ports.RunManifestStoreContract(t, store, func(name string) string { return name })
}

func TestFileStore_OSContract(t *testing.T) {
	store := file.New(nil, t.TempDir())
	ports.RunManifestStoreContract(t, store, func(name string) string { return name + ".json" })
}

func TestFileStore_Format(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := file.New(fs, "/out")
	ctx := context.Background()

	m := domain.NewManifest("/in/model.step")
	require.NoError(t, store.Save(ctx, "manifest.json", m))

	data, err := afero.ReadFile(fs, "/out/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"source\": \"/in/model.step\",\n  \"parts\": []\n}\n", string(data))

	t.Run("No Temp Files Left", func(t *testing.T) {
		entries, err := afero.ReadDir(fs, "/out")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "manifest.json", entries[0].Name())
	})

	t.Run("Key Without Extension", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "parts_manifest", m))
		exists, err := afero.Exists(fs, "/out/parts_manifest")
		require.NoError(t, err)
		assert.True(t, exists, "the key is the file name as given")
		exists, _ = afero.Exists(fs, "/out/parts_manifest.json")
		assert.False(t, exists)

		loaded, err := store.Load(ctx, "parts_manifest")
		require.NoError(t, err)
		assert.Equal(t, m, loaded)
	})

	t.Run("Absolute Key", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "/elsewhere/m.json", m))
		exists, err := afero.Exists(fs, "/elsewhere/m.json")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestFileStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty Key", func(t *testing.T) {
		store := file.New(afero.NewMemMapFs(), "/out")
		assert.Error(t, store.Save(ctx, "", domain.NewManifest("x")))
		_, err := store.Load(ctx, " ")
		assert.Error(t, err)
	})

	t.Run("Corrupt Manifest", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/out/bad.json", []byte("{"), 0o644))
		_, err := file.New(fs, "/out").Load(ctx, "bad.json")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrManifestNotFound)
	})

	t.Run("Read Only Filesystem", func(t *testing.T) {
		store := file.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/out")
		err := store.Save(ctx, "manifest.json", domain.NewManifest("x"))
		assert.Error(t, err)
	})

	t.Run("Unwritable Directory", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		dir := t.TempDir()
		locked := filepath.Join(dir, "locked")
		require.NoError(t, os.Mkdir(locked, 0o500))
		err := file.New(nil, locked).Save(ctx, "manifest.json", domain.NewManifest("x"))
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "temp file"))
	})
}
