package step

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/unixpickle/model3d/model3d"
)

// solidTypes are the representation items that carry geometry worth meshing.
var solidTypes = []string{
	"MANIFOLD_SOLID_BREP",
	"BREP_WITH_VOIDS",
	"FACETED_BREP",
	"SHELL_BASED_SURFACE_MODEL",
	"TESSELLATED_SOLID",
	"TESSELLATED_SHELL",
	"TRIANGULATED_SURFACE_SET",
	"COMPLEX_TRIANGULATED_SURFACE_SET",
}

// placedItem is a representation item positioned in the world.
type placedItem struct {
	id int
	xf frame
}

type tessellator struct {
	ctx   context.Context
	m     *model
	d     deflection
	b     *mesh.Builder
	edges map[int][]model3d.Coord3D

	xf   frame
	flip bool

	skipped []error
}

func newTessellator(ctx context.Context, m *model, d deflection) *tessellator {
	return &tessellator{
		ctx:   ctx,
		m:     m,
		d:     d,
		b:     mesh.NewBuilder(),
		edges: make(map[int][]model3d.Coord3D),
		xf:    identityFrame(),
	}
}

// run meshes the items. Faces that cannot be meshed are skipped; if none could be
// meshed the first failure is returned.
func (t *tessellator) run(items []placedItem) (*mesh.Mesh, error) {
	for _, it := range items {
		t.xf = it.xf
		t.flip = false
		if err := t.item(it.id); err != nil {
			return nil, err
		}
	}
	out := t.b.Mesh()
	if out.IsEmpty() {
		if len(t.skipped) > 0 {
			return nil, t.skipped[0]
		}
		return nil, domain.ErrEmptyMesh
	}
	return out, nil
}

func (t *tessellator) emit(a, b, c model3d.Coord3D) {
	if t.flip {
		b, c = c, b
	}
	t.b.AddTriangle(t.xf.apply(a), t.xf.apply(b), t.xf.apply(c))
}

func (t *tessellator) item(id int) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	e, err := t.m.entity(id)
	if err != nil {
		return err
	}

	switch {
	case e.Is("BREP_WITH_VOIDS"):
		rec, _ := e.Record("BREP_WITH_VOIDS")
		if err := t.refParam(e, 1, t.shell); err != nil {
			return err
		}
		voids, err := rec.Refs(len(rec.Params) - 1)
		if err != nil {
			return err
		}
		for _, v := range voids {
			if err := t.shell(v); err != nil {
				return err
			}
		}
		return nil
	case e.Is("MANIFOLD_SOLID_BREP", "FACETED_BREP"):
		return t.refParam(e, 1, t.shell)
	case e.Is("SHELL_BASED_SURFACE_MODEL", "TESSELLATED_SOLID", "TESSELLATED_SHELL"):
		rec, _ := e.Record("SHELL_BASED_SURFACE_MODEL", "TESSELLATED_SOLID", "TESSELLATED_SHELL")
		refs, err := rec.Refs(1)
		if err != nil {
			return err
		}
		for _, r := range refs {
			if err := t.item(r); err != nil {
				return err
			}
		}
		return nil
	case e.Is("CLOSED_SHELL", "OPEN_SHELL", "ORIENTED_CLOSED_SHELL", "ORIENTED_OPEN_SHELL"):
		return t.shell(id)
	case e.Is("TRIANGULATED_FACE", "COMPLEX_TRIANGULATED_FACE", "TRIANGULATED_SURFACE_SET", "COMPLEX_TRIANGULATED_SURFACE_SET"):
		return t.skip(id, t.triangulated(e))
	case e.Is("ADVANCED_FACE", "FACE_SURFACE", "FACE"):
		return t.face(id)
	}
	return fmt.Errorf("#%d: item %s: %w", id, e.Type(), domain.ErrUnsupportedGeometry)
}

// refParam calls fn with the reference at parameter i of the entity's first record.
func (t *tessellator) refParam(e *Entity, i int, fn func(int) error) error {
	r, err := e.Records[0].Ref(i)
	if err != nil {
		return err
	}
	return fn(r)
}

func (t *tessellator) shell(id int) error {
	e, err := t.m.entity(id)
	if err != nil {
		return err
	}
	if rec, ok := e.Record("ORIENTED_CLOSED_SHELL", "ORIENTED_OPEN_SHELL"); ok {
		inner, err := rec.Ref(2)
		if err != nil {
			return err
		}
		orientation, err := rec.Bool(3)
		if err != nil {
			return err
		}
		saved := t.flip
		t.flip = t.flip != !orientation
		defer func() { t.flip = saved }()
		return t.shell(inner)
	}
	rec, ok := e.Record("CLOSED_SHELL", "OPEN_SHELL", "CONNECTED_FACE_SET")
	if !ok {
		return fmt.Errorf("#%d is %s, want shell", id, e.Type())
	}
	faces, err := rec.Refs(1)
	if err != nil {
		return err
	}
	for _, f := range faces {
		if err := t.face(f); err != nil {
			return err
		}
	}
	return nil
}

// skip records a face failure. Only cancellation is propagated.
func (t *tessellator) skip(id int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	t.skipped = append(t.skipped, fmt.Errorf("face #%d: %w", id, err))
	return nil
}

// faceLoop is one bound of a face, already in traversal order.
type faceLoop struct {
	pts   []model3d.Coord3D
	outer bool
}

func (t *tessellator) face(id int) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	e, err := t.m.entity(id)
	if err != nil {
		return t.skip(id, err)
	}
	if e.Is("TRIANGULATED_FACE", "COMPLEX_TRIANGULATED_FACE") {
		return t.skip(id, t.triangulated(e))
	}
	if e.Is("ORIENTED_FACE") {
		rec, _ := e.Record("ORIENTED_FACE")
		inner, err := rec.Ref(2)
		if err != nil {
			return t.skip(id, err)
		}
		orientation, err := rec.Bool(3)
		if err != nil {
			return t.skip(id, err)
		}
		saved := t.flip
		t.flip = t.flip != !orientation
		defer func() { t.flip = saved }()
		return t.face(inner)
	}
	return t.skip(id, t.boundedFace(e))
}

func (t *tessellator) boundedFace(e *Entity) error {
	rec, ok := e.Record("ADVANCED_FACE", "FACE_SURFACE", "FACE")
	if !ok {
		return fmt.Errorf("%s: %w", e.Type(), domain.ErrUnsupportedGeometry)
	}
	bounds, err := rec.Refs(1)
	if err != nil {
		return err
	}
	loops := make([]faceLoop, 0, len(bounds))
	for _, b := range bounds {
		l, err := t.bound(b)
		if err != nil {
			return err
		}
		if len(l.pts) > 0 {
			loops = append(loops, l)
		}
	}

	if rec.Type == "FACE" || len(rec.Params) < 4 {
		return t.planar(loops, nil)
	}
	surfRef, err := rec.Ref(2)
	if err != nil {
		return err
	}
	sameSense, err := rec.Bool(3)
	if err != nil {
		return err
	}
	surf, err := t.m.surface(surfRef)
	if err != nil {
		return err
	}

	switch s := surf.(type) {
	case plane:
		n := s.f.z
		if !sameSense {
			n = n.Scale(-1)
		}
		return t.planar(loops, &n)
	case analytic:
		return t.analytic(s, loops, sameSense)
	case bsplineSurface:
		u0, u1, v0, v1 := s.domain()
		nu := min(max(len(s.ctrl)*s.uDegree*2, 4), 256)
		nv := min(max(len(s.ctrl[0])*s.vDegree*2, 4), 256)
		grid(s.at, gridOptions{u0: u0, u1: u1, v0: v0, v1: v1, nu: nu, nv: nv, flip: !sameSense}, t.emit)
		return nil
	}
	return fmt.Errorf("surface %T: %w", surf, domain.ErrUnsupportedGeometry)
}

func (t *tessellator) bound(id int) (faceLoop, error) {
	rec, err := t.m.record(id, "FACE_OUTER_BOUND", "FACE_BOUND")
	if err != nil {
		return faceLoop{}, err
	}
	loopRef, err := rec.Ref(1)
	if err != nil {
		return faceLoop{}, err
	}
	orientation, err := rec.Bool(2)
	if err != nil {
		return faceLoop{}, err
	}
	pts, err := t.loop(loopRef)
	if err != nil {
		return faceLoop{}, err
	}
	if !orientation {
		reverse(pts)
	}
	return faceLoop{pts: pts, outer: rec.Type == "FACE_OUTER_BOUND"}, nil
}

func reverse(pts []model3d.Coord3D) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// loop returns the points of a loop without repeating the first point at the end.
func (t *tessellator) loop(id int) ([]model3d.Coord3D, error) {
	e, err := t.m.entity(id)
	if err != nil {
		return nil, err
	}
	switch {
	case e.Is("POLY_LOOP"):
		rec, _ := e.Record("POLY_LOOP")
		refs, err := rec.Refs(1)
		if err != nil {
			return nil, err
		}
		var pts []model3d.Coord3D
		for _, r := range refs {
			p, err := t.m.point(r)
			if err != nil {
				return nil, err
			}
			pts = appendDistinct(pts, p)
		}
		return closeLoop(pts), nil
	case e.Is("VERTEX_LOOP"):
		rec, _ := e.Record("VERTEX_LOOP")
		v, err := rec.Ref(1)
		if err != nil {
			return nil, err
		}
		p, err := t.vertex(v)
		if err != nil {
			return nil, err
		}
		return []model3d.Coord3D{p}, nil
	case e.Is("EDGE_LOOP"):
		rec, _ := e.Record("EDGE_LOOP")
		refs, err := rec.Refs(1)
		if err != nil {
			return nil, err
		}
		var pts []model3d.Coord3D
		for _, r := range refs {
			seg, err := t.orientedEdge(r)
			if err != nil {
				return nil, err
			}
			for _, p := range seg {
				pts = appendDistinct(pts, p)
			}
		}
		return closeLoop(pts), nil
	}
	return nil, fmt.Errorf("#%d: loop %s: %w", id, e.Type(), domain.ErrUnsupportedGeometry)
}

func appendDistinct(pts []model3d.Coord3D, p model3d.Coord3D) []model3d.Coord3D {
	if n := len(pts); n > 0 && pts[n-1] == p {
		return pts
	}
	return append(pts, p)
}

func closeLoop(pts []model3d.Coord3D) []model3d.Coord3D {
	for len(pts) > 1 && pts[len(pts)-1] == pts[0] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func (t *tessellator) vertex(id int) (model3d.Coord3D, error) {
	rec, err := t.m.record(id, "VERTEX_POINT")
	if err != nil {
		return model3d.Coord3D{}, err
	}
	p, err := rec.Ref(1)
	if err != nil {
		return model3d.Coord3D{}, err
	}
	return t.m.point(p)
}

func (t *tessellator) orientedEdge(id int) ([]model3d.Coord3D, error) {
	rec, err := t.m.record(id, "ORIENTED_EDGE")
	if err != nil {
		return nil, err
	}
	edge, err := rec.Ref(3)
	if err != nil {
		return nil, err
	}
	orientation, err := rec.Bool(4)
	if err != nil {
		return nil, err
	}
	pts, err := t.edge(edge)
	if err != nil {
		return nil, err
	}
	out := append([]model3d.Coord3D(nil), pts...)
	if !orientation {
		reverse(out)
	}
	return out, nil
}

// edge samples an edge curve from its start vertex to its end vertex. Samples are
// shared by both faces using the edge.
func (t *tessellator) edge(id int) ([]model3d.Coord3D, error) {
	if pts, ok := t.edges[id]; ok {
		return pts, nil
	}
	rec, err := t.m.record(id, "EDGE_CURVE")
	if err != nil {
		return nil, err
	}
	sRef, err := rec.Ref(1)
	if err != nil {
		return nil, err
	}
	eRef, err := rec.Ref(2)
	if err != nil {
		return nil, err
	}
	cRef, err := rec.Ref(3)
	if err != nil {
		return nil, err
	}
	sameSense, err := rec.Bool(4)
	if err != nil {
		return nil, err
	}
	start, err := t.vertex(sRef)
	if err != nil {
		return nil, err
	}
	end, err := t.vertex(eRef)
	if err != nil {
		return nil, err
	}
	c, err := t.m.curve(cRef)
	if err != nil {
		return nil, err
	}
	pts, err := c.sample(start, end, sameSense, t.d)
	if err != nil {
		return nil, err
	}
	t.edges[id] = pts
	return pts, nil
}

// planar triangulates loops lying in one plane. A nil normal is taken from the outer loop.
func (t *tessellator) planar(loops []faceLoop, normal *model3d.Coord3D) error {
	outer := -1
	for i, l := range loops {
		if l.outer {
			outer = i
			break
		}
	}
	if outer < 0 {
		bestArea := -1.0
		for i, l := range loops {
			if a := newell(l.pts).Norm(); a > bestArea {
				outer, bestArea = i, a
			}
		}
	}
	if outer < 0 || len(loops[outer].pts) < 3 {
		return fmt.Errorf("planar face without an outer loop: %w", domain.ErrUnsupportedGeometry)
	}

	var n model3d.Coord3D
	if normal != nil {
		n = *normal
	} else {
		n = newell(loops[outer].pts)
		if n.Norm() == 0 {
			return fmt.Errorf("degenerate planar face: %w", domain.ErrUnsupportedGeometry)
		}
	}
	f := frameFromNormal(loops[outer].pts[0], n.Normalize())

	var pts3 []model3d.Coord3D
	var pts2 []vec2
	add := func(l faceLoop) []int {
		idx := make([]int, len(l.pts))
		for i, p := range l.pts {
			q := f.local(p)
			idx[i] = len(pts3)
			pts3 = append(pts3, p)
			pts2 = append(pts2, vec2{q.X, q.Y})
		}
		return idx
	}
	outerIdx := add(loops[outer])
	var holes [][]int
	for i, l := range loops {
		if i != outer && len(l.pts) >= 3 {
			holes = append(holes, add(l))
		}
	}
	for _, tri := range triangulate(pts2, outerIdx, holes) {
		t.emit(pts3[tri[0]], pts3[tri[1]], pts3[tri[2]])
	}
	return nil
}

// analytic meshes a face on a revolved surface over the parameter rectangle spanned by
// its boundary. Trimming inside that rectangle is not honoured.
func (t *tessellator) analytic(s analytic, loops []faceLoop, sameSense bool) error {
	ax := s.axis()
	var us, vs []float64
	var travel float64
	for _, l := range loops {
		prevU, havePrev := 0.0, false
		for _, p := range l.pts {
			u, v := s.uv(p)
			vs = append(vs, v)
			q := ax.local(p)
			if math.Hypot(q.X, q.Y) < 1e-9*math.Max(1, s.radius()) {
				continue
			}
			us = append(us, u)
			if l.outer || len(loops) == 1 {
				if havePrev {
					travel += math.Remainder(u-prevU, 2*math.Pi)
				}
				prevU, havePrev = u, true
			}
		}
	}

	u0, u1 := angularRange(us, t.d)
	var v0, v1 float64
	switch s.(type) {
	case sphere:
		v0, v1 = -math.Pi/2, math.Pi/2
		if len(vs) > 0 {
			v0, v1 = minMax(vs)
		}
		if v1-v0 < 1e-9 {
			// Cap bounded by a single parallel: the loop direction picks the side.
			if (travel > 0) == sameSense {
				v1 = math.Pi / 2
			} else {
				v0 = -math.Pi / 2
			}
		}
	default:
		if len(vs) == 0 {
			if !s.vPeriodic() {
				return fmt.Errorf("unbounded face on %T: %w", s, domain.ErrUnsupportedGeometry)
			}
			v0, v1 = 0, 2*math.Pi
		} else if s.vPeriodic() {
			v0, v1 = angularRange(vs, t.d)
		} else {
			v0, v1 = minMax(vs)
		}
	}
	if v1-v0 < 1e-12 {
		return fmt.Errorf("face on %T has no extent: %w", s, domain.ErrUnsupportedGeometry)
	}

	nu := t.d.arcSegments(s.radius(), u1-u0)
	nv := 1
	if r := s.vRadius(); r > 0 {
		nv = t.d.arcSegments(r, v1-v0)
	}
	grid(s.at, gridOptions{
		u0: u0, u1: u1, v0: v0, v1: v1,
		nu: nu, nv: nv,
		want: s.normal,
		flip: !sameSense,
	}, t.emit)
	return nil
}

func minMax(vs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// triangulated emits the triangles of a tessellated face or surface set.
func (t *tessellator) triangulated(e *Entity) error {
	rec, _ := e.Record("TRIANGULATED_FACE", "COMPLEX_TRIANGULATED_FACE", "TRIANGULATED_SURFACE_SET", "COMPLEX_TRIANGULATED_SURFACE_SET")

	// Faces carry a geometric_link before pnindex; surface sets do not.
	pnAt := 5
	if rec.Type == "TRIANGULATED_SURFACE_SET" || rec.Type == "COMPLEX_TRIANGULATED_SURFACE_SET" {
		pnAt = 4
	}

	cRef, err := rec.Ref(1)
	if err != nil {
		return err
	}
	coords, err := t.coordinates(cRef)
	if err != nil {
		return err
	}
	var pn []int
	if !rec.IsUnset(pnAt) {
		if pn, err = rec.Ints(pnAt); err != nil {
			return err
		}
	}
	point := func(i int) (model3d.Coord3D, error) {
		if len(pn) > 0 {
			if i < 1 || i > len(pn) {
				return model3d.Coord3D{}, fmt.Errorf("%s: pnindex %d out of range", rec.Type, i)
			}
			i = pn[i-1]
		}
		if i < 1 || i > len(coords) {
			return model3d.Coord3D{}, fmt.Errorf("%s: coordinate %d out of range", rec.Type, i)
		}
		return coords[i-1], nil
	}
	tri := func(a, b, c int) error {
		pa, err := point(a)
		if err != nil {
			return err
		}
		pb, err := point(b)
		if err != nil {
			return err
		}
		pc, err := point(c)
		if err != nil {
			return err
		}
		t.emit(pa, pb, pc)
		return nil
	}
	lists := func(i int) ([][]int, error) {
		l, err := rec.List(i)
		if err != nil {
			return nil, err
		}
		out := make([][]int, 0, len(l))
		for _, item := range l {
			ints, err := intList(rec.Type, i, item)
			if err != nil {
				return nil, err
			}
			out = append(out, ints)
		}
		return out, nil
	}

	if rec.Type == "TRIANGULATED_FACE" || rec.Type == "TRIANGULATED_SURFACE_SET" {
		tris, err := lists(pnAt + 1)
		if err != nil {
			return err
		}
		for _, tr := range tris {
			if len(tr) != 3 {
				return fmt.Errorf("%s: triangle with %d indices", rec.Type, len(tr))
			}
			if err := tri(tr[0], tr[1], tr[2]); err != nil {
				return err
			}
		}
		return nil
	}

	strips, err := lists(pnAt + 1)
	if err != nil {
		return err
	}
	for _, s := range strips {
		for i := 0; i+2 < len(s); i++ {
			a, b := s[i], s[i+1]
			if i%2 == 1 {
				a, b = b, a
			}
			if err := tri(a, b, s[i+2]); err != nil {
				return err
			}
		}
	}
	fans, err := lists(pnAt + 2)
	if err != nil {
		return err
	}
	for _, f := range fans {
		for i := 1; i+1 < len(f); i++ {
			if err := tri(f[0], f[i], f[i+1]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *tessellator) coordinates(id int) ([]model3d.Coord3D, error) {
	rec, err := t.m.record(id, "COORDINATES_LIST")
	if err != nil {
		return nil, err
	}
	rows, err := rec.List(2)
	if err != nil {
		return nil, err
	}
	out := make([]model3d.Coord3D, 0, len(rows))
	for _, row := range rows {
		c, err := realList(rec.Type, 2, row)
		if err != nil {
			return nil, err
		}
		p, err := t.m.coord(c)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
