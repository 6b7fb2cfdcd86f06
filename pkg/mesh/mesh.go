// Package mesh provides the indexed triangle mesh produced by tessellation and its STL codec.
package mesh

import (
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/unixpickle/model3d/model3d"
)

// Mesh is an ordered list of points and the facets (index triples) that reference them.
type Mesh struct {
	Points []model3d.Coord3D
	Facets [][3]int
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// CountPoints returns the number of vertices.
func (m *Mesh) CountPoints() int {
	return len(m.Points)
}

// CountFacets returns the number of triangles.
func (m *Mesh) CountFacets() int {
	return len(m.Facets)
}

// IsEmpty reports whether the mesh has no facets.
func (m *Mesh) IsEmpty() bool {
	return len(m.Facets) == 0
}

// Append adds all points and facets of o to m, keeping o's facet order.
func (m *Mesh) Append(o *Mesh) {
	offset := len(m.Points)
	m.Points = append(m.Points, o.Points...)
	for _, f := range o.Facets {
		m.Facets = append(m.Facets, [3]int{f[0] + offset, f[1] + offset, f[2] + offset})
	}
}

// BoundBox returns the bounding box of all points.
func (m *Mesh) BoundBox() domain.BoundBox {
	b := domain.EmptyBoundBox()
	for _, p := range m.Points {
		b.Extend(domain.Vec3(p.Array()))
	}
	return b
}

// Triangles expands the facets into model3d triangles, in facet order.
func (m *Mesh) Triangles() []*model3d.Triangle {
	tris := make([]*model3d.Triangle, len(m.Facets))
	for i, f := range m.Facets {
		tris[i] = &model3d.Triangle{m.Points[f[0]], m.Points[f[1]], m.Points[f[2]]}
	}
	return tris
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var total float64
	for _, t := range m.Triangles() {
		total += t.Area()
	}
	return total
}

// Builder assembles a mesh from triangles, merging coincident points.
type Builder struct {
	mesh  *Mesh
	index map[model3d.Coord3D]int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		mesh:  New(),
		index: make(map[model3d.Coord3D]int),
	}
}

// Point returns the index of p, adding it if it was not seen before.
func (b *Builder) Point(p model3d.Coord3D) int {
	if i, ok := b.index[p]; ok {
		return i
	}
	i := len(b.mesh.Points)
	b.mesh.Points = append(b.mesh.Points, p)
	b.index[p] = i
	return i
}

// AddTriangle adds the triangle (p1, p2, p3). Triangles that collapse onto fewer
// than three distinct points are dropped.
func (b *Builder) AddTriangle(p1, p2, p3 model3d.Coord3D) {
	i1, i2, i3 := b.Point(p1), b.Point(p2), b.Point(p3)
	if i1 == i2 || i2 == i3 || i1 == i3 {
		return
	}
	b.mesh.Facets = append(b.mesh.Facets, [3]int{i1, i2, i3})
}

// Mesh returns the built mesh. The builder must not be used afterwards.
func (b *Builder) Mesh() *Mesh {
	return b.mesh
}
