package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartFileName(t *testing.T) {
	tests := []struct {
		name  string
		index int
		obj   string
		want  string
	}{
		{"plain", 0, "Body", "part_000_Body.stl"},
		{"spaces", 7, "Base Plate", "part_007_Base_Plate.stl"},
		{"separators", 42, `a/b\c d`, "part_042_a_b_c_d.stl"},
		{"wide index", 1234, "Nut", "part_1234_Nut.stl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.PartFileName(tt.index, tt.obj)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.ContainsAny(got, ` /\`))
		})
	}
}

func TestNewPartRecord_DerivesCenterAndSize(t *testing.T) {
	bbox := domain.BoundBox{Min: domain.Vec3{-1, 2, 0}, Max: domain.Vec3{3, 4, 10}}
	rec := domain.NewPartRecord(3, "Shaft", "part_003_Shaft.stl", bbox, 8, 12)

	for i := 0; i < 3; i++ {
		assert.InDelta(t, (bbox.Min[i]+bbox.Max[i])/2, rec.Center[i], 1e-12)
		assert.InDelta(t, bbox.Max[i]-bbox.Min[i], rec.Size[i], 1e-12)
	}
	assert.Equal(t, 8, rec.Vertices)
	assert.Equal(t, 12, rec.Faces)
}

func TestManifest_JSONShape(t *testing.T) {
	m := domain.NewManifest("/models/machine.step")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"/models/machine.step","parts":[]}`, string(data))

	bbox := domain.BoundBox{Min: domain.Vec3{0, 0, 0}, Max: domain.Vec3{2, 2, 2}}
	m.Parts = append(m.Parts, domain.NewPartRecord(1, "Cube", "part_001_Cube.stl", bbox, 8, 12))

	data, err = json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"source": "/models/machine.step",
		"parts": [{
			"index": 1,
			"name": "Cube",
			"file": "part_001_Cube.stl",
			"center": [1, 1, 1],
			"size": [2, 2, 2],
			"bbox": {"min": [0, 0, 0], "max": [2, 2, 2]},
			"vertices": 8,
			"faces": 12
		}]
	}`, string(data))

	p, ok := m.Part(1)
	assert.True(t, ok)
	assert.Equal(t, "Cube", p.Name)
	_, ok = m.Part(0)
	assert.False(t, ok)
}
