package step

import (
	"math"

	"github.com/unixpickle/model3d/model3d"
)

// frame is an orthonormal coordinate system (rotation + translation).
type frame struct {
	origin  model3d.Coord3D
	x, y, z model3d.Coord3D
}

func identityFrame() frame {
	return frame{
		x: model3d.XYZ(1, 0, 0),
		y: model3d.XYZ(0, 1, 0),
		z: model3d.XYZ(0, 0, 1),
	}
}

// newFrame builds a right-handed frame from an axis and an approximate x direction,
// following the AXIS2_PLACEMENT_3D rules.
func newFrame(origin, axis, ref model3d.Coord3D) frame {
	z := axis.Normalize()
	x := ref.Sub(z.Scale(ref.Dot(z)))
	if x.Norm() < 1e-12 {
		// ref is parallel to the axis: pick any perpendicular.
		x = perpendicular(z)
	}
	x = x.Normalize()
	return frame{origin: origin, x: x, y: z.Cross(x), z: z}
}

// frameFromNormal builds a frame whose z axis is n.
func frameFromNormal(origin, n model3d.Coord3D) frame {
	return newFrame(origin, n, perpendicular(n))
}

func perpendicular(v model3d.Coord3D) model3d.Coord3D {
	a := model3d.XYZ(1, 0, 0)
	if math.Abs(v.X) > 0.9 {
		a = model3d.XYZ(0, 1, 0)
	}
	return v.Cross(a).Normalize()
}

// apply maps a point from frame coordinates to parent coordinates.
func (f frame) apply(p model3d.Coord3D) model3d.Coord3D {
	return f.origin.Add(f.applyDir(p))
}

// applyDir maps a direction from frame coordinates to parent coordinates.
func (f frame) applyDir(d model3d.Coord3D) model3d.Coord3D {
	return f.x.Scale(d.X).Add(f.y.Scale(d.Y)).Add(f.z.Scale(d.Z))
}

// local maps a point from parent coordinates to frame coordinates.
func (f frame) local(p model3d.Coord3D) model3d.Coord3D {
	d := p.Sub(f.origin)
	return model3d.XYZ(d.Dot(f.x), d.Dot(f.y), d.Dot(f.z))
}

// compose returns the frame equivalent to applying g, then f.
func (f frame) compose(g frame) frame {
	return frame{
		origin: f.apply(g.origin),
		x:      f.applyDir(g.x),
		y:      f.applyDir(g.y),
		z:      f.applyDir(g.z),
	}
}

// inverse returns the frame mapping parent coordinates back into f.
func (f frame) inverse() frame {
	inv := frame{
		x: model3d.XYZ(f.x.X, f.y.X, f.z.X),
		y: model3d.XYZ(f.x.Y, f.y.Y, f.z.Y),
		z: model3d.XYZ(f.x.Z, f.y.Z, f.z.Z),
	}
	inv.origin = inv.applyDir(f.origin).Scale(-1)
	return inv
}

// newell returns the (unnormalized) normal of a closed polygon.
func newell(pts []model3d.Coord3D) model3d.Coord3D {
	var n model3d.Coord3D
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return n
}
