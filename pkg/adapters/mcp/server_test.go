package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/testutils"
	"github.com/aretw0/stepmesh/pkg/adapters/memory"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	fs := testutils.SetupFs(t, map[string]string{
		"/in/assembly.step": testutils.Assembly,
		"/in/empty.step":    testutils.Empty,
	})
	p := stepmesh.New(stepmesh.WithFs(fs), stepmesh.WithManifestStore(memory.NewStore()))
	return NewServer(p, Defaults{
		Convert: stepmesh.ConvertRequest{Output: "/out/model.stl", Tolerance: domain.DefaultConvertTolerance()},
		Export:  stepmesh.ExportRequest{OutputDir: "/out/parts", Tolerance: domain.DefaultExportTolerance()},
	})
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)

	resp := s.mcpServer.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range []string{"inspect_step", "convert_step", "export_parts"} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}

func TestHandleInspect(t *testing.T) {
	s := newTestServer(t)

	report, err := s.handleInspect(context.Background(), mcp.CallToolRequest{}, InspectArgs{Input: "/in/assembly.step"})
	require.NoError(t, err)
	assert.Len(t, report.Objects, 3)

	_, err = s.handleInspect(context.Background(), mcp.CallToolRequest{}, InspectArgs{})
	assert.Error(t, err)
}

func TestHandleConvert(t *testing.T) {
	s := newTestServer(t)

	report, err := s.handleConvert(context.Background(), mcp.CallToolRequest{}, RunArgs{Input: "/in/assembly.step"})
	require.NoError(t, err)
	assert.Equal(t, "/out/model.stl", report.Output)
	assert.Equal(t, 2, report.Tally.Converted)

	report, err = s.handleConvert(context.Background(), mcp.CallToolRequest{}, RunArgs{Input: "/in/empty.step"})
	require.NoError(t, err, "no meshes is reported, not an error")
	assert.Empty(t, report.Output)

	_, err = s.handleConvert(context.Background(), mcp.CallToolRequest{}, RunArgs{Input: "/in/missing.step"})
	assert.Error(t, err)
}

func TestHandleExportAndManifestResource(t *testing.T) {
	s := newTestServer(t)

	_, err := s.readManifest(context.Background(), mcp.ReadResourceRequest{})
	assert.ErrorIs(t, err, domain.ErrManifestNotFound)

	report, err := s.handleExport(context.Background(), mcp.CallToolRequest{}, RunArgs{Input: "/in/assembly.step", LinearDeflection: 0.05})
	require.NoError(t, err)
	assert.Len(t, report.Manifest.Parts, 2)

	contents, err := s.readManifest(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, ManifestURI, text.URI)

	var manifest domain.Manifest
	require.NoError(t, json.Unmarshal([]byte(text.Text), &manifest))
	assert.Equal(t, report.Manifest, &manifest)
}

func TestRunArgsTolerance(t *testing.T) {
	def := domain.DefaultExportTolerance()

	assert.Equal(t, def, RunArgs{}.tolerance(def))

	got := RunArgs{LinearDeflection: 0.01, Relative: true}.tolerance(def)
	assert.Equal(t, 0.01, got.LinearDeflection)
	assert.Equal(t, def.AngularDeflection, got.AngularDeflection)
	assert.True(t, got.Relative)
}
