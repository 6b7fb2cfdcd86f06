package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/spf13/afero"
)

// Store implements ports.ManifestStore on a filesystem.
// A key is a file path, relative to BasePath unless absolute, used exactly as given.
type Store struct {
	Fs       afero.Fs
	BasePath string
}

// New creates a Store writing under basePath on fs (the OS filesystem when nil).
func New(fs afero.Fs, basePath string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{Fs: fs, BasePath: basePath}
}

func (s *Store) path(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("manifest key cannot be empty")
	}
	if filepath.IsAbs(key) || s.BasePath == "" {
		return filepath.Clean(key), nil
	}
	return filepath.Join(s.BasePath, key), nil
}

// Save writes the manifest as indented JSON, replacing any existing file atomically:
// the data goes to a temporary file in the same directory, is synced, then renamed.
func (s *Store) Save(ctx context.Context, key string, manifest *domain.Manifest) error {
	destPath, err := s.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(destPath)
	if err := s.Fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	tmpFile, err := afero.TempFile(s.Fs, dir, "tmp-"+filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = s.Fs.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename does not replace an existing file on Windows.
	if _, err := s.Fs.Stat(destPath); err == nil {
		if err := s.Fs.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing manifest for overwrite: %w", err)
		}
	}
	if err := s.Fs.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to manifest: %w", err)
	}
	return nil
}

// Load reads a manifest written by Save.
func (s *Store) Load(ctx context.Context, key string) (*domain.Manifest, error) {
	filePath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.Fs, filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrManifestNotFound
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest domain.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if manifest.Parts == nil {
		manifest.Parts = []domain.PartRecord{}
	}
	return &manifest, nil
}
