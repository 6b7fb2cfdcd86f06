package mesh_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/stepmesh/internal/testutils"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"
)

func square(z float64) *mesh.Mesh {
	b := mesh.NewBuilder()
	p00 := model3d.XYZ(0, 0, z)
	p10 := model3d.XYZ(1, 0, z)
	p11 := model3d.XYZ(1, 1, z)
	p01 := model3d.XYZ(0, 1, z)
	b.AddTriangle(p00, p10, p11)
	b.AddTriangle(p00, p11, p01)
	return b.Mesh()
}

func TestBuilder_MergesPointsAndDropsDegenerates(t *testing.T) {
	b := mesh.NewBuilder()
	a := model3d.XYZ(0, 0, 0)
	c := model3d.XYZ(1, 0, 0)
	d := model3d.XYZ(0, 1, 0)

	b.AddTriangle(a, c, d)
	b.AddTriangle(a, a, d)
	b.AddTriangle(c, d, a)

	m := b.Mesh()
	assert.Equal(t, 3, m.CountPoints())
	assert.Equal(t, 2, m.CountFacets())
	assert.Equal(t, [3]int{1, 2, 0}, m.Facets[1])
}

func TestMesh_Append(t *testing.T) {
	combined := square(0)
	combined.Append(square(1))

	assert.Equal(t, 8, combined.CountPoints())
	assert.Equal(t, 4, combined.CountFacets())
	assert.Equal(t, [3]int{4, 5, 6}, combined.Facets[2])
	assert.InDelta(t, 2.0, combined.Area(), 1e-12)

	bbox := combined.BoundBox()
	assert.Equal(t, domain.Vec3{0, 0, 0}, bbox.Min)
	assert.Equal(t, domain.Vec3{1, 1, 1}, bbox.Max)
}

func TestSTL_RoundTrip(t *testing.T) {
	m := square(2)

	var buf bytes.Buffer
	require.NoError(t, mesh.WriteSTL(&buf, m))
	assert.Equal(t, 84+50*m.CountFacets(), buf.Len())

	decoded, err := mesh.ReadSTL(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.CountFacets(), decoded.CountFacets())
	assert.Equal(t, m.CountPoints(), decoded.CountPoints())
	assert.Equal(t, m.BoundBox(), decoded.BoundBox())
}

func TestSTL_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, mesh.WriteSTL(&a, square(0)))
	require.NoError(t, mesh.WriteSTL(&b, square(0)))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestReadSTL_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, mesh.WriteSTL(&buf, square(0)))

	_, err := mesh.ReadSTL(bytes.NewReader(buf.Bytes()[:100]))
	assert.Error(t, err)

	_, err = mesh.ReadSTL(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestFileWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := mesh.NewFileWriter(fs)

	require.NoError(t, w.WriteFile("/out/parts/a.stl", square(0)))
	info, err := fs.Stat("/out/parts/a.stl")
	require.NoError(t, err)
	assert.Equal(t, int64(84+50*2), info.Size())

	// Overwrite with a bigger mesh.
	big := square(0)
	big.Append(square(1))
	require.NoError(t, w.WriteFile("/out/parts/a.stl", big))

	back, err := w.ReadFile("/out/parts/a.stl")
	require.NoError(t, err)
	assert.Equal(t, 4, back.CountFacets())

	_, err = w.ReadFile("/missing.stl")
	assert.Error(t, err)
}

func TestFileWriter_FailedWriteLeavesNoFile(t *testing.T) {
	fs := &testutils.FailingFs{
		Fs:   afero.NewMemMapFs(),
		Fail: func(name string) bool { return name == "/out/bad.stl" },
	}
	w := mesh.NewFileWriter(fs)

	err := w.WriteFile("/out/bad.stl", square(0))
	assert.ErrorIs(t, err, testutils.ErrWriteFailed)
	exists, err := afero.Exists(fs, "/out/bad.stl")
	require.NoError(t, err)
	assert.False(t, exists, "no truncated STL is left behind")

	require.NoError(t, w.WriteFile("/out/good.stl", square(0)))
	exists, _ = afero.Exists(fs, "/out/good.stl")
	assert.True(t, exists)
}
