package process

import (
	"fmt"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/unixpickle/model3d/model3d"
)

// Response is the JSON document the kernel command prints on stdout.
//
//	{"objects":[{"name":"Bolt","bbox":{"min":[0,0,0],"max":[1,1,1]},
//	             "points":[[0,0,0],...],"facets":[[0,1,2],...]}]}
type Response struct {
	Objects []ObjectPayload `json:"objects"`
}

// ObjectPayload is one document object of a Response.
type ObjectPayload struct {
	Name string `json:"name"`
	// NoShape marks objects that expose no shape at all (groups, annotations).
	NoShape bool `json:"no_shape,omitempty"`
	// Null marks objects whose shape holds no geometry.
	Null   bool             `json:"null,omitempty"`
	BBox   *domain.BoundBox `json:"bbox,omitempty"`
	Points [][3]float64     `json:"points,omitempty"`
	Facets [][3]int         `json:"facets,omitempty"`
	// Error is the kernel's tessellation failure for this object, if any.
	Error string `json:"error,omitempty"`
}

// Mesh converts the payload into a mesh, validating facet indices.
func (p ObjectPayload) Mesh() (*mesh.Mesh, error) {
	m := mesh.New()
	m.Points = make([]model3d.Coord3D, len(p.Points))
	for i, pt := range p.Points {
		m.Points[i] = model3d.NewCoord3DArray(pt)
	}
	for i, f := range p.Facets {
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Points) {
				return nil, fmt.Errorf("facet %d references point %d of %d", i, idx, len(m.Points))
			}
		}
	}
	m.Facets = append(m.Facets, p.Facets...)
	return m, nil
}
