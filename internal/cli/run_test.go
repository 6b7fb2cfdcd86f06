package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/config"
	"github.com/aretw0/stepmesh/internal/testutils"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T, dir string) (RunOptions, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Convert.Output = filepath.Join(dir, "model.stl")
	cfg.Export.OutputDir = filepath.Join(dir, "parts")

	var stdout bytes.Buffer
	return RunOptions{Config: &cfg, Stdout: &stdout, Stderr: &bytes.Buffer{}}, &stdout
}

func TestRunExport(t *testing.T) {
	dir := testutils.SetupTestDir(t, map[string]string{"assembly.step": testutils.Assembly})
	opts, stdout := testOptions(t, dir)

	err := RunExport(context.Background(), filepath.Join(dir, "assembly.step"), opts)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "stepmesh")
	assert.Contains(t, stdout.String(), "Exported 2 part(s)")
	assert.Contains(t, stdout.String(), "part_001_Cube.stl")

	data, err := os.ReadFile(filepath.Join(dir, "parts", "manifest.json"))
	require.NoError(t, err)
	var manifest domain.Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Len(t, manifest.Parts, 2)
	assert.FileExists(t, filepath.Join(dir, "parts", "part_002_Cube001.stl"))
}

func TestRunExport_JSON(t *testing.T) {
	dir := testutils.SetupTestDir(t, map[string]string{"cube.step": testutils.FacetedCube})
	opts, stdout := testOptions(t, dir)
	opts.JSON = true

	require.NoError(t, RunExport(context.Background(), filepath.Join(dir, "cube.step"), opts))

	var report stepmesh.ExportReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report), "stdout must only hold the report")
	assert.Equal(t, 1, report.Tally.Converted)
	require.Len(t, report.Manifest.Parts, 1)
	assert.Equal(t, "part_000_Cube.stl", report.Manifest.Parts[0].File)
}

func TestRunExport_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := testutils.SetupTestDir(t, map[string]string{"cube.step": testutils.FacetedCube})
	opts, _ := testOptions(t, dir)
	opts.Config.Redis.Addr = mr.Addr()

	require.NoError(t, RunExport(context.Background(), filepath.Join(dir, "cube.step"), opts))

	manifestPath := filepath.Join(dir, "parts", "manifest.json")
	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err, "the manifest file is written whether or not redis is configured")
	var manifest domain.Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	require.Len(t, manifest.Parts, 1)

	raw, err := mr.Get("stepmesh:manifest:" + manifestPath)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), raw)
	assert.FileExists(t, filepath.Join(dir, "parts", "part_000_Cube.stl"))
}

func TestRunExport_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := testutils.SetupTestDir(t, map[string]string{"cube.step": testutils.FacetedCube})
	opts, _ := testOptions(t, dir)
	opts.Config.Redis.Addr = mr.Addr()
	mr.Close()

	err := RunExport(context.Background(), filepath.Join(dir, "cube.step"), opts)
	assert.Error(t, err)
}

func TestRunConvert(t *testing.T) {
	dir := testutils.SetupTestDir(t, map[string]string{"assembly.step": testutils.Assembly})
	opts, stdout := testOptions(t, dir)
	opts.Config.Metrics.Textfile = filepath.Join(dir, "stepmesh.prom")

	require.NoError(t, RunConvert(context.Background(), filepath.Join(dir, "assembly.step"), opts))

	assert.Contains(t, stdout.String(), "16 vertices, 24 faces")
	assert.FileExists(t, opts.Config.Convert.Output)

	metrics, err := os.ReadFile(opts.Config.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `stepmesh_objects_total{command="convert",status="converted"} 2`)
}

func TestRunConvert_NoMeshes(t *testing.T) {
	dir := testutils.SetupTestDir(t, map[string]string{"empty.step": testutils.Empty})
	opts, stdout := testOptions(t, dir)

	err := RunConvert(context.Background(), filepath.Join(dir, "empty.step"), opts)
	assert.ErrorIs(t, err, domain.ErrNoMeshes)
	assert.Contains(t, stdout.String(), "No meshes were produced")
	assert.NoFileExists(t, opts.Config.Convert.Output)
}

func TestRunInspect_JSON(t *testing.T) {
	dir := testutils.SetupTestDir(t, map[string]string{"assembly.step": testutils.Assembly})
	opts, stdout := testOptions(t, dir)
	opts.JSON = true

	require.NoError(t, RunInspect(context.Background(), filepath.Join(dir, "assembly.step"), opts))

	var report stepmesh.InspectReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "native", report.Kernel)
	assert.Len(t, report.Objects, 3)
}

func TestRunInspect_MissingFile(t *testing.T) {
	dir := t.TempDir()
	opts, _ := testOptions(t, dir)

	err := RunInspect(context.Background(), filepath.Join(dir, "missing.step"), opts)
	assert.Error(t, err)
}

func TestNewKernel(t *testing.T) {
	cfg := config.Default()

	t.Run("Process kernel without command", func(t *testing.T) {
		cfg := cfg
		cfg.Kernel = config.KernelProcess
		_, err := NewKernel(&cfg, nil, NewLogger(cfg.Log, &bytes.Buffer{}))
		assert.ErrorIs(t, err, domain.ErrKernelUnavailable)
	})

	t.Run("Unknown kernel", func(t *testing.T) {
		cfg := cfg
		cfg.Kernel = "freecad"
		_, err := NewKernel(&cfg, nil, NewLogger(cfg.Log, &bytes.Buffer{}))
		assert.ErrorIs(t, err, domain.ErrKernelUnavailable)
	})
}

func TestIsInterrupted(t *testing.T) {
	assert.True(t, IsInterrupted(context.Canceled))
	assert.False(t, IsInterrupted(domain.ErrNoMeshes))
}

func TestSignalContext(t *testing.T) {
	t.Run("Records The Signal", func(t *testing.T) {
		sc := newSignalContext(context.Background())
		go sc.wait()

		sc.sigCh <- syscall.SIGTERM
		<-sc.Done()
		assert.Equal(t, syscall.SIGTERM, sc.Signal())
		assert.Equal(t, syscall.SIGTERM, signalOf(sc))
	})

	t.Run("Cancelled Elsewhere", func(t *testing.T) {
		sc := newSignalContext(context.Background())
		go sc.wait()

		sc.Cancel()
		<-sc.Done()
		assert.Nil(t, sc.Signal())
	})

	assert.Nil(t, signalOf(context.Background()))
}

func TestRunExport_Interrupted(t *testing.T) {
	dir := testutils.SetupTestDir(t, map[string]string{"assembly.step": testutils.Assembly})
	opts, stdout := testOptions(t, dir)

	sc := newSignalContext(context.Background())
	go sc.wait()
	sc.sigCh <- os.Interrupt
	<-sc.Done()

	err := RunExport(sc, filepath.Join(dir, "assembly.step"), opts)
	assert.True(t, IsInterrupted(err))
	assert.Contains(t, stdout.String(), "Interrupted by interrupt")
	assert.NotContains(t, stdout.String(), "Exported")
}
