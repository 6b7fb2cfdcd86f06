package step_test

import (
	"context"
	"testing"

	"github.com/aretw0/stepmesh/internal/testutils"
	"github.com/aretw0/stepmesh/pkg/adapters/step"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Kernel = (*step.Kernel)(nil)

func open(t *testing.T, content string) ports.Document {
	t.Helper()
	fs := testutils.SetupFs(t, map[string]string{"/in/model.step": content})
	doc, err := step.New(step.WithFs(fs)).Open(context.Background(), "/in/model.step")
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

// signedVolume is positive for closed meshes whose facets face outwards.
func signedVolume(m *mesh.Mesh) float64 {
	var v float64
	for _, f := range m.Facets {
		a, b, c := m.Points[f[0]], m.Points[f[1]], m.Points[f[2]]
		v += a.Dot(b.Cross(c)) / 6
	}
	return v
}

func assertVec(t *testing.T, want, got domain.Vec3, delta float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v", i, got)
	}
}

func TestKernel_FacetedCube(t *testing.T) {
	doc := open(t, testutils.FacetedCube)
	assert.Equal(t, "/in/model.step", doc.Source())

	objs := doc.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, "Cube", objs[0].Name())

	shape, ok := objs[0].Shape()
	require.True(t, ok)
	require.False(t, shape.IsNull())

	bbox := shape.BoundBox()
	assertVec(t, domain.Vec3{0, 0, 0}, bbox.Min, 1e-9)
	assertVec(t, domain.Vec3{10, 10, 10}, bbox.Max, 1e-9)

	m, err := shape.Tessellate(context.Background(), domain.DefaultExportTolerance())
	require.NoError(t, err)
	assert.Equal(t, 8, m.CountPoints())
	assert.Equal(t, 12, m.CountFacets())
	assert.InDelta(t, 600, m.Area(), 1e-9)
	assert.InDelta(t, 1000, signedVolume(m), 1e-9)
}

func TestKernel_InchUnits(t *testing.T) {
	doc := open(t, testutils.InchCube)
	shape, ok := doc.Objects()[0].Shape()
	require.True(t, ok)
	bbox := shape.BoundBox()
	assertVec(t, domain.Vec3{254, 254, 254}, bbox.Size(), 1e-9)
}

func TestKernel_Cylinder(t *testing.T) {
	doc := open(t, testutils.Cylinder)
	objs := doc.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, "Cylinder", objs[0].Name())
	shape, _ := objs[0].Shape()

	bbox := shape.BoundBox()
	assertVec(t, domain.Vec3{-5, -5, 0}, bbox.Min, 0.01)
	assertVec(t, domain.Vec3{5, 5, 10}, bbox.Max, 0.01)

	t.Run("Coarse Tolerance", func(t *testing.T) {
		m, err := shape.Tessellate(context.Background(), domain.DefaultConvertTolerance())
		require.NoError(t, err)
		// 16 segments around: a prism inscribed in the cylinder.
		assert.InDelta(t, 765.37, signedVolume(m), 0.5)
	})

	t.Run("Finer Tolerance Adds Facets", func(t *testing.T) {
		coarse, err := shape.Tessellate(context.Background(), domain.DefaultConvertTolerance())
		require.NoError(t, err)
		fine, err := shape.Tessellate(context.Background(), domain.Tolerance{LinearDeflection: 0.01, AngularDeflection: 0.1})
		require.NoError(t, err)
		assert.Greater(t, fine.CountFacets(), coarse.CountFacets())
		assert.InDelta(t, 785.4, signedVolume(fine), 2)
	})

	t.Run("Relative Tolerance", func(t *testing.T) {
		m, err := shape.Tessellate(context.Background(), domain.Tolerance{LinearDeflection: 0.001, AngularDeflection: 0.5, Relative: true})
		require.NoError(t, err)
		assert.False(t, m.IsEmpty())
	})
}

func TestKernel_Assembly(t *testing.T) {
	doc := open(t, testutils.Assembly)
	objs := doc.Objects()
	require.Len(t, objs, 3)

	names := []string{objs[0].Name(), objs[1].Name(), objs[2].Name()}
	assert.Equal(t, []string{"Assembly", "Cube", "Cube001"}, names)

	t.Run("Assembly Is Null", func(t *testing.T) {
		shape, ok := objs[0].Shape()
		require.True(t, ok)
		assert.True(t, shape.IsNull())
		_, err := shape.Tessellate(context.Background(), domain.DefaultExportTolerance())
		assert.ErrorIs(t, err, domain.ErrNullShape)
	})

	t.Run("Components Keep Their Placement", func(t *testing.T) {
		first, _ := objs[1].Shape()
		assertVec(t, domain.Vec3{0, 0, 0}, first.BoundBox().Min, 1e-9)
		assertVec(t, domain.Vec3{10, 10, 10}, first.BoundBox().Max, 1e-9)

		second, _ := objs[2].Shape()
		assertVec(t, domain.Vec3{10, 0, 0}, second.BoundBox().Min, 1e-9)
		assertVec(t, domain.Vec3{20, 10, 10}, second.BoundBox().Max, 1e-9)

		m, err := second.Tessellate(context.Background(), domain.DefaultExportTolerance())
		require.NoError(t, err)
		assert.InDelta(t, 1000, signedVolume(m), 1e-6)
	})
}

func TestKernel_LooseSolids(t *testing.T) {
	doc := open(t, testutils.LooseSolids)
	objs := doc.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, "cube", objs[0].Name())
	assert.Equal(t, "Solid2", objs[1].Name())
}

func TestKernel_UnsupportedGeometry(t *testing.T) {
	doc := open(t, testutils.Unsupported)
	shape, ok := doc.Objects()[0].Shape()
	require.True(t, ok)
	assert.False(t, shape.IsNull())
	assert.False(t, shape.BoundBox().IsValid())

	_, err := shape.Tessellate(context.Background(), domain.DefaultExportTolerance())
	assert.ErrorIs(t, err, domain.ErrUnsupportedGeometry)
}

func TestKernel_Empty(t *testing.T) {
	doc := open(t, testutils.Empty)
	assert.Empty(t, doc.Objects())
}

func TestKernel_Open_Errors(t *testing.T) {
	fs := testutils.SetupFs(t, map[string]string{"/bad.step": "not a step file"})
	k := step.New(step.WithFs(fs))

	t.Run("Missing File", func(t *testing.T) {
		_, err := k.Open(context.Background(), "/missing.step")
		assert.Error(t, err)
	})

	t.Run("Malformed File", func(t *testing.T) {
		_, err := k.Open(context.Background(), "/bad.step")
		assert.Error(t, err)
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := k.Open(ctx, "/bad.step")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestKernel_Tessellate_Cancelled(t *testing.T) {
	doc := open(t, testutils.FacetedCube)
	shape, _ := doc.Objects()[0].Shape()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := shape.Tessellate(ctx, domain.DefaultExportTolerance())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocument_CloseIsIdempotent(t *testing.T) {
	doc := open(t, testutils.FacetedCube)
	require.NoError(t, doc.Close())
	require.NoError(t, doc.Close())
}
