package step

import (
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/unixpickle/model3d/model3d"
)

// surface is the geometry a face lies on.
type surface interface{}

// plane is a planar surface; its frame z axis is the surface normal.
type plane struct {
	f frame
}

// analytic is a surface parametrised by (u, v) where u is an angle around the frame axis.
type analytic interface {
	uv(p model3d.Coord3D) (u, v float64)
	at(u, v float64) model3d.Coord3D
	normal(u, v float64) model3d.Coord3D
	// radius is the largest distance from the axis, used to size the u sampling.
	radius() float64
	// vPeriodic reports whether v wraps around like u.
	vPeriodic() bool
	// vRadius sizes the v sampling of angular v parameters; zero means v is linear.
	vRadius() float64
	axis() frame
}

type cylinder struct {
	f frame
	r float64
}

func (c cylinder) uv(p model3d.Coord3D) (float64, float64) {
	q := c.f.local(p)
	return math.Atan2(q.Y, q.X), q.Z
}

func (c cylinder) at(u, v float64) model3d.Coord3D {
	return c.f.apply(model3d.XYZ(c.r*math.Cos(u), c.r*math.Sin(u), v))
}

func (c cylinder) normal(u, _ float64) model3d.Coord3D {
	return c.f.applyDir(model3d.XYZ(math.Cos(u), math.Sin(u), 0))
}

func (c cylinder) radius() float64  { return c.r }
func (c cylinder) vPeriodic() bool  { return false }
func (c cylinder) axis() frame      { return c.f }
func (c cylinder) vRadius() float64 { return 0 }

type cone struct {
	f    frame
	r    float64
	tanA float64
	// rmax is widened while sampling the boundary.
	rmax float64
}

func (c *cone) uv(p model3d.Coord3D) (float64, float64) {
	q := c.f.local(p)
	c.rmax = math.Max(c.rmax, math.Hypot(q.X, q.Y))
	return math.Atan2(q.Y, q.X), q.Z
}

func (c *cone) at(u, v float64) model3d.Coord3D {
	r := c.r + v*c.tanA
	return c.f.apply(model3d.XYZ(r*math.Cos(u), r*math.Sin(u), v))
}

func (c *cone) normal(u, _ float64) model3d.Coord3D {
	return c.f.applyDir(model3d.XYZ(math.Cos(u), math.Sin(u), -c.tanA).Normalize())
}

func (c *cone) radius() float64  { return math.Max(c.r, c.rmax) }
func (c *cone) vPeriodic() bool  { return false }
func (c *cone) axis() frame      { return c.f }
func (c *cone) vRadius() float64 { return 0 }

type sphere struct {
	f frame
	r float64
}

func (s sphere) uv(p model3d.Coord3D) (float64, float64) {
	q := s.f.local(p)
	return math.Atan2(q.Y, q.X), math.Asin(math.Max(-1, math.Min(1, q.Z/s.r)))
}

func (s sphere) at(u, v float64) model3d.Coord3D {
	return s.f.apply(model3d.XYZ(s.r*math.Cos(v)*math.Cos(u), s.r*math.Cos(v)*math.Sin(u), s.r*math.Sin(v)))
}

func (s sphere) normal(u, v float64) model3d.Coord3D {
	return s.f.applyDir(model3d.XYZ(math.Cos(v)*math.Cos(u), math.Cos(v)*math.Sin(u), math.Sin(v)))
}

func (s sphere) radius() float64  { return s.r }
func (s sphere) vPeriodic() bool  { return false }
func (s sphere) axis() frame      { return s.f }
func (s sphere) vRadius() float64 { return s.r }

type torus struct {
	f            frame
	major, minor float64
}

func (t torus) uv(p model3d.Coord3D) (float64, float64) {
	q := t.f.local(p)
	return math.Atan2(q.Y, q.X), math.Atan2(q.Z, math.Hypot(q.X, q.Y)-t.major)
}

func (t torus) at(u, v float64) model3d.Coord3D {
	r := t.major + t.minor*math.Cos(v)
	return t.f.apply(model3d.XYZ(r*math.Cos(u), r*math.Sin(u), t.minor*math.Sin(v)))
}

func (t torus) normal(u, v float64) model3d.Coord3D {
	return t.f.applyDir(model3d.XYZ(math.Cos(v)*math.Cos(u), math.Cos(v)*math.Sin(u), math.Sin(v)))
}

func (t torus) radius() float64  { return t.major + t.minor }
func (t torus) vPeriodic() bool  { return true }
func (t torus) axis() frame      { return t.f }
func (t torus) vRadius() float64 { return t.minor }

// bsplineSurface is a (possibly rational) tensor-product B-spline surface.
type bsplineSurface struct {
	uDegree, vDegree int
	ctrl             [][]model3d.Coord3D
	weights          [][]float64
	uKnots, vKnots   []float64
}

// basis returns the knot span holding t and the degree+1 non-zero basis functions there.
func basis(knots []float64, degree, n int, t float64) (int, []float64) {
	span := degree
	for span < n-1 && t >= knots[span+1] {
		span++
	}
	out := make([]float64, degree+1)
	left := make([]float64, degree+1)
	right := make([]float64, degree+1)
	out[0] = 1
	for j := 1; j <= degree; j++ {
		left[j] = t - knots[span+1-j]
		right[j] = knots[span+j] - t
		saved := 0.0
		for r := 0; r < j; r++ {
			den := right[r+1] + left[j-r]
			tmp := 0.0
			if den != 0 {
				tmp = out[r] / den
			}
			out[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		out[j] = saved
	}
	return span, out
}

func (s bsplineSurface) domain() (u0, u1, v0, v1 float64) {
	nu, nv := len(s.ctrl), len(s.ctrl[0])
	return s.uKnots[s.uDegree], s.uKnots[nu], s.vKnots[s.vDegree], s.vKnots[nv]
}

func (s bsplineSurface) at(u, v float64) model3d.Coord3D {
	nu, nv := len(s.ctrl), len(s.ctrl[0])
	us, un := basis(s.uKnots, s.uDegree, nu, u)
	vs, vn := basis(s.vKnots, s.vDegree, nv, v)
	var sum model3d.Coord3D
	var wsum float64
	for i := 0; i <= s.uDegree; i++ {
		for j := 0; j <= s.vDegree; j++ {
			ci, cj := us-s.uDegree+i, vs-s.vDegree+j
			w := un[i] * vn[j]
			if s.weights != nil {
				w *= s.weights[ci][cj]
			}
			sum = sum.Add(s.ctrl[ci][cj].Scale(w))
			wsum += w
		}
	}
	if wsum == 0 {
		return sum
	}
	return sum.Scale(1 / wsum)
}

// surface resolves a surface entity.
func (m *model) surface(id int) (surface, error) {
	e, err := m.entity(id)
	if err != nil {
		return nil, err
	}

	placed := func(rec Record) (frame, error) {
		r, err := rec.Ref(1)
		if err != nil {
			return frame{}, err
		}
		return m.placement(r)
	}
	positive := func(rec Record, i int) (float64, error) {
		v, err := rec.Real(i)
		if err != nil {
			return 0, err
		}
		if v <= 0 {
			return 0, fmt.Errorf("#%d: %s parameter %d must be positive", id, rec.Type, i)
		}
		return m.length(v), nil
	}

	switch {
	case e.Is("PLANE"):
		rec, _ := e.Record("PLANE")
		f, err := placed(rec)
		if err != nil {
			return nil, err
		}
		return plane{f: f}, nil
	case e.Is("CYLINDRICAL_SURFACE"):
		rec, _ := e.Record("CYLINDRICAL_SURFACE")
		f, err := placed(rec)
		if err != nil {
			return nil, err
		}
		r, err := positive(rec, 2)
		if err != nil {
			return nil, err
		}
		return cylinder{f: f, r: r}, nil
	case e.Is("CONICAL_SURFACE"):
		rec, _ := e.Record("CONICAL_SURFACE")
		f, err := placed(rec)
		if err != nil {
			return nil, err
		}
		r, err := rec.Real(2)
		if err != nil {
			return nil, err
		}
		a, err := rec.Real(3)
		if err != nil {
			return nil, err
		}
		return &cone{f: f, r: m.length(r), tanA: math.Tan(m.angle(a))}, nil
	case e.Is("SPHERICAL_SURFACE"):
		rec, _ := e.Record("SPHERICAL_SURFACE")
		f, err := placed(rec)
		if err != nil {
			return nil, err
		}
		r, err := positive(rec, 2)
		if err != nil {
			return nil, err
		}
		return sphere{f: f, r: r}, nil
	case e.Is("TOROIDAL_SURFACE"):
		rec, _ := e.Record("TOROIDAL_SURFACE")
		f, err := placed(rec)
		if err != nil {
			return nil, err
		}
		major, err := positive(rec, 2)
		if err != nil {
			return nil, err
		}
		minor, err := positive(rec, 3)
		if err != nil {
			return nil, err
		}
		return torus{f: f, major: major, minor: minor}, nil
	case e.Is("B_SPLINE_SURFACE_WITH_KNOTS", "B_SPLINE_SURFACE"):
		return m.bsplineSurface(e)
	}
	return nil, fmt.Errorf("#%d: surface %s: %w", id, e.Type(), domain.ErrUnsupportedGeometry)
}

func (m *model) bsplineSurface(e *Entity) (surface, error) {
	base, ok := e.Record("B_SPLINE_SURFACE")
	if !ok {
		base, _ = e.Record("B_SPLINE_SURFACE_WITH_KNOTS")
	}
	off := 1
	if e.Complex() {
		off = 0
	}
	ud, err := base.Int(off)
	if err != nil {
		return nil, err
	}
	vd, err := base.Int(off + 1)
	if err != nil {
		return nil, err
	}
	rows, err := base.List(off + 2)
	if err != nil {
		return nil, err
	}
	s := bsplineSurface{uDegree: ud, vDegree: vd}
	for _, row := range rows {
		refs, err := refList(base.Type, off+2, row)
		if err != nil {
			return nil, err
		}
		pts := make([]model3d.Coord3D, 0, len(refs))
		for _, r := range refs {
			p, err := m.point(r)
			if err != nil {
				return nil, err
			}
			pts = append(pts, p)
		}
		if len(s.ctrl) > 0 && len(pts) != len(s.ctrl[0]) {
			return nil, fmt.Errorf("#%d: ragged control net", e.ID)
		}
		s.ctrl = append(s.ctrl, pts)
	}
	if len(s.ctrl) <= ud || len(s.ctrl[0]) <= vd || ud < 1 || vd < 1 {
		return nil, fmt.Errorf("#%d: control net too small for degree %d/%d", e.ID, ud, vd)
	}

	knotRec, ok := e.Record("B_SPLINE_SURFACE_WITH_KNOTS")
	if !ok {
		return nil, fmt.Errorf("#%d: b-spline surface without knots: %w", e.ID, domain.ErrUnsupportedGeometry)
	}
	kOff := off + 6
	if e.Complex() {
		kOff = 0
	}
	expand := func(mi, ki int) ([]float64, error) {
		mults, err := knotRec.Ints(mi)
		if err != nil {
			return nil, err
		}
		knots, err := knotRec.Reals(ki)
		if err != nil {
			return nil, err
		}
		if len(mults) != len(knots) {
			return nil, fmt.Errorf("#%d: %d multiplicities for %d knots", e.ID, len(mults), len(knots))
		}
		var out []float64
		for i, k := range knots {
			for j := 0; j < mults[i]; j++ {
				out = append(out, k)
			}
		}
		return out, nil
	}
	if s.uKnots, err = expand(kOff, kOff+2); err != nil {
		return nil, err
	}
	if s.vKnots, err = expand(kOff+1, kOff+3); err != nil {
		return nil, err
	}
	if len(s.uKnots) != len(s.ctrl)+ud+1 || len(s.vKnots) != len(s.ctrl[0])+vd+1 {
		return nil, fmt.Errorf("#%d: knot vectors do not match the control net", e.ID)
	}

	if rat, ok := e.Record("RATIONAL_B_SPLINE_SURFACE"); ok {
		rows, err := rat.List(0)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			w, err := realList(rat.Type, 0, row)
			if err != nil {
				return nil, err
			}
			if i >= len(s.ctrl) || len(w) != len(s.ctrl[i]) {
				return nil, fmt.Errorf("#%d: weights do not match the control net", e.ID)
			}
			s.weights = append(s.weights, w)
		}
	}
	return s, nil
}

// angularRange returns the smallest interval [lo, hi] covering the angles, found by
// dropping the largest gap between neighbours. Nearly uniform coverage is reported as
// a full turn starting at lo.
func angularRange(angles []float64, d deflection) (lo, hi float64) {
	if len(angles) == 0 {
		return 0, 2 * math.Pi
	}
	a := make([]float64, len(angles))
	for i, v := range angles {
		a[i] = math.Mod(v+2*math.Pi, 2*math.Pi)
	}
	sort.Float64s(a)

	gapAt, gap := len(a)-1, a[0]+2*math.Pi-a[len(a)-1]
	for i := 0; i+1 < len(a); i++ {
		if g := a[i+1] - a[i]; g > gap {
			gapAt, gap = i, g
		}
	}
	start := a[(gapAt+1)%len(a)]
	if gap <= math.Max(d.angular*1.05, math.Pi/6) {
		return start, start + 2*math.Pi
	}
	return start, start + 2*math.Pi - gap
}

// gridOptions steer the triangulation of a parameter rectangle.
type gridOptions struct {
	u0, u1, v0, v1 float64
	nu, nv         int
	// want is the outward direction the triangles must face; nil keeps du x dv.
	want func(u, v float64) model3d.Coord3D
	flip bool
}

// grid triangulates a parameter rectangle of a surface.
func grid(at func(u, v float64) model3d.Coord3D, o gridOptions, emit func(a, b, c model3d.Coord3D)) {
	nu, nv := max(o.nu, 1), max(o.nv, 1)
	pts := make([][]model3d.Coord3D, nu+1)
	for i := range pts {
		u := o.u0 + (o.u1-o.u0)*float64(i)/float64(nu)
		pts[i] = make([]model3d.Coord3D, nv+1)
		for j := range pts[i] {
			pts[i][j] = at(u, o.v0+(o.v1-o.v0)*float64(j)/float64(nv))
		}
	}

	tri := func(a, b, c model3d.Coord3D, u, v float64) {
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Norm() == 0 {
			return
		}
		flip := o.flip
		if o.want != nil && n.Dot(o.want(u, v)) < 0 {
			flip = !flip
		}
		if flip {
			b, c = c, b
		}
		emit(a, b, c)
	}

	for i := 0; i < nu; i++ {
		uc := o.u0 + (o.u1-o.u0)*(float64(i)+0.5)/float64(nu)
		for j := 0; j < nv; j++ {
			vc := o.v0 + (o.v1-o.v0)*(float64(j)+0.5)/float64(nv)
			p00, p10 := pts[i][j], pts[i+1][j]
			p01, p11 := pts[i][j+1], pts[i+1][j+1]
			tri(p00, p10, p11, uc, vc)
			tri(p00, p11, p01, uc, vc)
		}
	}
}
