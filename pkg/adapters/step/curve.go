package step

import (
	"fmt"
	"math"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/unixpickle/model3d/model3d"
)

const maxSegments = 4096

// deflection is the absolute tolerance a tessellation run works with.
type deflection struct {
	linear  float64
	angular float64
}

// arcSegments returns how many chords approximate an arc of the given radius and sweep
// within the deflection.
func (d deflection) arcSegments(radius, sweep float64) int {
	sweep = math.Abs(sweep)
	if sweep == 0 {
		return 1
	}
	n := math.Ceil(sweep / d.angular)
	if radius > d.linear/2 {
		step := 2 * math.Acos(1-d.linear/radius)
		n = math.Max(n, math.Ceil(sweep/step))
	}
	if sweep >= 2*math.Pi-1e-9 {
		n = math.Max(n, 3)
	}
	return int(math.Min(math.Max(n, 1), maxSegments))
}

// curve is a 3D curve an edge can lie on.
type curve interface {
	// sample returns points from a to b inclusive. forward tells whether the traversal
	// follows the curve's parametric direction.
	sample(a, b model3d.Coord3D, forward bool, d deflection) ([]model3d.Coord3D, error)
}

type line struct{}

func (line) sample(a, b model3d.Coord3D, _ bool, _ deflection) ([]model3d.Coord3D, error) {
	return []model3d.Coord3D{a, b}, nil
}

// conic covers circles (a == b) and ellipses in the XY plane of their frame.
type conic struct {
	f    frame
	a, b float64
}

func (c conic) param(p model3d.Coord3D) float64 {
	q := c.f.local(p)
	return math.Atan2(q.Y/c.b, q.X/c.a)
}

func (c conic) at(t float64) model3d.Coord3D {
	return c.f.apply(model3d.XYZ(c.a*math.Cos(t), c.b*math.Sin(t), 0))
}

func (c conic) sample(a, b model3d.Coord3D, forward bool, d deflection) ([]model3d.Coord3D, error) {
	t0, t1 := c.param(a), c.param(b)
	var sweep float64
	if a.Dist(b) <= 1e-9*math.Max(1, c.a) {
		sweep = 2 * math.Pi
	} else {
		sweep = positiveAngle(t1 - t0)
	}
	if !forward {
		sweep -= 2 * math.Pi
	}

	n := d.arcSegments(math.Max(c.a, c.b), sweep)
	pts := make([]model3d.Coord3D, n+1)
	pts[0] = a
	for i := 1; i < n; i++ {
		pts[i] = c.at(t0 + sweep*float64(i)/float64(n))
	}
	pts[n] = b
	return pts, nil
}

// positiveAngle maps an angle into (0, 2π].
func positiveAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= 1e-12 {
		a += 2 * math.Pi
	}
	return a
}

type polyline struct {
	pts []model3d.Coord3D
}

func nearestIndex(pts []model3d.Coord3D, p model3d.Coord3D) int {
	best, bestDist := 0, math.Inf(1)
	for i, q := range pts {
		if d := q.Dist(p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (pl polyline) sample(a, b model3d.Coord3D, forward bool, _ deflection) ([]model3d.Coord3D, error) {
	i, j := nearestIndex(pl.pts, a), nearestIndex(pl.pts, b)
	var out []model3d.Coord3D
	if forward {
		if j < i {
			j = i
		}
		out = append(out, pl.pts[i:j+1]...)
	} else {
		if j > i {
			j = i
		}
		for k := i; k >= j; k-- {
			out = append(out, pl.pts[k])
		}
	}
	if len(out) < 2 {
		return []model3d.Coord3D{a, b}, nil
	}
	out[0], out[len(out)-1] = a, b
	return out, nil
}

// bspline is a (possibly rational) B-spline curve.
type bspline struct {
	degree  int
	ctrl    []model3d.Coord3D
	weights []float64
	knots   []float64
}

func (s bspline) domain() (float64, float64) {
	return s.knots[s.degree], s.knots[len(s.knots)-s.degree-1]
}

// at evaluates the curve with de Boor's algorithm in homogeneous coordinates.
func (s bspline) at(t float64) model3d.Coord3D {
	p := s.degree
	lo, hi := s.domain()
	t = math.Max(lo, math.Min(hi, t))

	k := p
	for k < len(s.ctrl)-1 && t >= s.knots[k+1] {
		k++
	}

	type hpoint struct {
		c model3d.Coord3D
		w float64
	}
	d := make([]hpoint, p+1)
	for j := 0; j <= p; j++ {
		w := 1.0
		if s.weights != nil {
			w = s.weights[j+k-p]
		}
		d[j] = hpoint{s.ctrl[j+k-p].Scale(w), w}
	}
	for r := 1; r <= p; r++ {
		for j := p; j >= r; j-- {
			den := s.knots[j+1+k-r] - s.knots[j+k-p]
			alpha := 0.0
			if den != 0 {
				alpha = (t - s.knots[j+k-p]) / den
			}
			d[j] = hpoint{
				d[j-1].c.Scale(1 - alpha).Add(d[j].c.Scale(alpha)),
				d[j-1].w*(1-alpha) + d[j].w*alpha,
			}
		}
	}
	return d[p].c.Scale(1 / d[p].w)
}

func (s bspline) samples(d deflection) ([]float64, []model3d.Coord3D) {
	var polygon float64
	for i := 1; i < len(s.ctrl); i++ {
		polygon += s.ctrl[i].Dist(s.ctrl[i-1])
	}
	n := len(s.ctrl) * s.degree * 2
	if d.linear > 0 {
		n = int(math.Max(float64(n), math.Ceil(polygon/(d.linear*20))))
	}
	n = int(math.Min(math.Max(float64(n), 8), maxSegments))

	lo, hi := s.domain()
	ts := make([]float64, n+1)
	pts := make([]model3d.Coord3D, n+1)
	for i := 0; i <= n; i++ {
		ts[i] = lo + (hi-lo)*float64(i)/float64(n)
		pts[i] = s.at(ts[i])
	}
	return ts, pts
}

func (s bspline) sample(a, b model3d.Coord3D, forward bool, d deflection) ([]model3d.Coord3D, error) {
	_, pts := s.samples(d)
	i, j := nearestIndex(pts, a), nearestIndex(pts, b)
	closed := pts[0].Dist(pts[len(pts)-1]) < 1e-9

	var out []model3d.Coord3D
	switch {
	case forward && j > i:
		out = append(out, pts[i:j+1]...)
	case !forward && j < i:
		for k := i; k >= j; k-- {
			out = append(out, pts[k])
		}
	case closed && forward:
		// Wrap around the closing point.
		out = append(out, pts[i:]...)
		out = append(out, pts[1:j+1]...)
	case closed:
		for k := i; k >= 0; k-- {
			out = append(out, pts[k])
		}
		for k := len(pts) - 2; k >= j; k-- {
			out = append(out, pts[k])
		}
	default:
		out = []model3d.Coord3D{a, b}
	}
	if len(out) < 2 {
		out = []model3d.Coord3D{a, b}
	}
	out[0], out[len(out)-1] = a, b
	return out, nil
}

// curve resolves a curve entity.
func (m *model) curve(id int) (curve, error) {
	e, err := m.entity(id)
	if err != nil {
		return nil, err
	}

	switch {
	case e.Is("LINE"):
		return line{}, nil
	case e.Is("CIRCLE"):
		rec, _ := e.Record("CIRCLE")
		f, r, err := m.conicFrame(rec, 2)
		if err != nil {
			return nil, err
		}
		return conic{f: f, a: r, b: r}, nil
	case e.Is("ELLIPSE"):
		rec, _ := e.Record("ELLIPSE")
		f, a, err := m.conicFrame(rec, 2)
		if err != nil {
			return nil, err
		}
		b, err := rec.Real(3)
		if err != nil {
			return nil, err
		}
		return conic{f: f, a: a, b: m.length(b)}, nil
	case e.Is("POLYLINE"):
		rec, _ := e.Record("POLYLINE")
		refs, err := rec.Refs(1)
		if err != nil {
			return nil, err
		}
		pl := polyline{}
		for _, r := range refs {
			p, err := m.point(r)
			if err != nil {
				return nil, err
			}
			pl.pts = append(pl.pts, p)
		}
		if len(pl.pts) < 2 {
			return nil, fmt.Errorf("#%d: polyline needs two points", id)
		}
		return pl, nil
	case e.Is("B_SPLINE_CURVE_WITH_KNOTS", "B_SPLINE_CURVE"):
		return m.bspline(e)
	case e.Is("SURFACE_CURVE", "SEAM_CURVE", "INTERSECTION_CURVE", "BOUNDED_CURVE"):
		rec, _ := e.Record("SURFACE_CURVE", "SEAM_CURVE", "INTERSECTION_CURVE", "BOUNDED_CURVE")
		inner, err := rec.Ref(1)
		if err != nil {
			return nil, err
		}
		return m.curve(inner)
	case e.Is("TRIMMED_CURVE"):
		rec, _ := e.Record("TRIMMED_CURVE")
		basis, err := rec.Ref(1)
		if err != nil {
			return nil, err
		}
		return m.curve(basis)
	}
	return nil, fmt.Errorf("#%d: curve %s: %w", id, e.Type(), domain.ErrUnsupportedGeometry)
}

// conicFrame reads the placement (param 1) and the radius at param ri.
func (m *model) conicFrame(rec Record, ri int) (frame, float64, error) {
	pRef, err := rec.Ref(1)
	if err != nil {
		return frame{}, 0, err
	}
	f, err := m.placement(pRef)
	if err != nil {
		return frame{}, 0, err
	}
	r, err := rec.Real(ri)
	if err != nil {
		return frame{}, 0, err
	}
	if r <= 0 {
		return frame{}, 0, fmt.Errorf("%s: non-positive radius %g", rec.Type, r)
	}
	return f, m.length(r), nil
}

// bspline reads B_SPLINE_CURVE_WITH_KNOTS, including the complex rational form.
func (m *model) bspline(e *Entity) (curve, error) {
	base, ok := e.Record("B_SPLINE_CURVE")
	if !ok {
		base, _ = e.Record("B_SPLINE_CURVE_WITH_KNOTS")
	}
	// The simple form carries a leading name; the complex form does not.
	off := 1
	if e.Complex() {
		off = 0
	}

	degree, err := base.Int(off)
	if err != nil {
		return nil, err
	}
	refs, err := base.Refs(off + 1)
	if err != nil {
		return nil, err
	}
	s := bspline{degree: degree}
	for _, r := range refs {
		p, err := m.point(r)
		if err != nil {
			return nil, err
		}
		s.ctrl = append(s.ctrl, p)
	}

	knotRec, ok := e.Record("B_SPLINE_CURVE_WITH_KNOTS")
	if !ok {
		return nil, fmt.Errorf("#%d: b-spline without knots: %w", e.ID, domain.ErrUnsupportedGeometry)
	}
	kOff := off + 5
	if e.Complex() {
		kOff = 0
	}
	mults, err := knotRec.Ints(kOff)
	if err != nil {
		return nil, err
	}
	knots, err := knotRec.Reals(kOff + 1)
	if err != nil {
		return nil, err
	}
	if len(mults) != len(knots) {
		return nil, fmt.Errorf("#%d: %d multiplicities for %d knots", e.ID, len(mults), len(knots))
	}
	for i, k := range knots {
		for j := 0; j < mults[i]; j++ {
			s.knots = append(s.knots, k)
		}
	}

	if rat, ok := e.Record("RATIONAL_B_SPLINE_CURVE"); ok {
		if s.weights, err = rat.Reals(0); err != nil {
			return nil, err
		}
		if len(s.weights) != len(s.ctrl) {
			return nil, fmt.Errorf("#%d: %d weights for %d control points", e.ID, len(s.weights), len(s.ctrl))
		}
	}

	if degree < 1 || len(s.ctrl) <= degree || len(s.knots) != len(s.ctrl)+degree+1 {
		return nil, fmt.Errorf("#%d: inconsistent b-spline (degree %d, %d points, %d knots)", e.ID, degree, len(s.ctrl), len(s.knots))
	}
	return s, nil
}
