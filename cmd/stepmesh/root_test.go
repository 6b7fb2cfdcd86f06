package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/testutils"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Success", nil, 0},
		{"No meshes", fmt.Errorf("convert: %w", domain.ErrNoMeshes), 0},
		{"Interrupted", context.Canceled, 0},
		{"Kernel unavailable", domain.ErrKernelUnavailable, 1},
		{"Manifest write failure", errors.New("failed to save manifest"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("env-file", "", "")
	cmd.Flags().String("log-level", "info", "")
	cmd.Flags().String("output-dir", "parts", "")
	keys := map[string]string{"output-dir": "export.output_dir"}
	addToleranceFlags(cmd, keys, "export")

	require.NoError(t, cmd.Flags().Parse([]string{"--log-level", "debug", "--linear", "0.05", "--relative"}))

	cfg, err := loadConfig(cmd, keys)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.05, cfg.Export.Tolerance.LinearDeflection)
	assert.True(t, cfg.Export.Tolerance.Relative)
	assert.Equal(t, domain.DefaultExportTolerance().AngularDeflection, cfg.Export.Tolerance.AngularDeflection, "unset flags keep config values")
	assert.Equal(t, "parts", cfg.Export.OutputDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := &cobra.Command{Use: "test"}
	keys := map[string]string{}
	addToleranceFlags(cmd, keys, "convert")
	require.NoError(t, cmd.Flags().Parse([]string{"--angular", "4"}))

	_, err := loadConfig(cmd, keys)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestExportCommand(t *testing.T) {
	dir := testutils.SetupTestDir(t, map[string]string{"assembly.step": testutils.Assembly})
	t.Chdir(dir)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"export", "assembly.step", "--output-dir", "out", "--json", "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var report stepmesh.ExportReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, filepath.Join("out", "manifest.json"), report.ManifestKey)
	assert.Len(t, report.Manifest.Parts, 2)
	assert.FileExists(t, filepath.Join(dir, "out", "part_001_Cube.stl"))
}

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "stepmesh version "+strings.TrimSpace(stepmesh.Version))
}
