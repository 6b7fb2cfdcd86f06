package testutils

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// SetupFs creates an in-memory filesystem holding the given files (path -> content).
// It fails the test immediately on error.
func SetupFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		WriteFile(t, fs, path, content)
	}
	return fs
}

// WriteFile writes content to path on fs, creating parent directories.
func WriteFile(t *testing.T, fs afero.Fs, path, content string) string {
	t.Helper()

	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755), "Failed to create fixture directory")
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644), "Failed to write fixture")
	return path
}

// SetupTestDir writes the files into a fresh temporary directory on the OS filesystem
// and returns its absolute path. Use it for code that shells out or binds real files.
func SetupTestDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	fs := afero.NewOsFs()
	for path, content := range files {
		WriteFile(t, fs, filepath.Join(dir, path), content)
	}
	return dir
}
