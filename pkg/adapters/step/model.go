package step

import (
	"fmt"
	"math"

	"github.com/unixpickle/model3d/model3d"
)

// model resolves geometric entities of a parsed file into kernel types,
// scaled to millimetres and radians.
type model struct {
	file        *File
	lengthScale float64
	angleScale  float64
}

func newModel(f *File) *model {
	m := &model{file: f, lengthScale: 1, angleScale: 1}

	// Units assigned to a representation context win over stray unit instances.
	var units []*Entity
	for _, ctx := range f.Each("GLOBAL_UNIT_ASSIGNED_CONTEXT") {
		rec, _ := ctx.Record("GLOBAL_UNIT_ASSIGNED_CONTEXT")
		refs, err := rec.Refs(0)
		if err != nil {
			continue
		}
		for _, r := range refs {
			if e, ok := f.Entity(r); ok {
				units = append(units, e)
			}
		}
	}
	units = append(units, f.Each("LENGTH_UNIT", "PLANE_ANGLE_UNIT")...)

	var haveLength, haveAngle bool
	for _, e := range units {
		switch {
		case !haveLength && e.Is("LENGTH_UNIT"):
			if s, ok := m.unitScale(e, 0); ok {
				m.lengthScale, haveLength = s, true
			}
		case !haveAngle && e.Is("PLANE_ANGLE_UNIT"):
			if s, ok := m.unitScale(e, 0); ok {
				m.angleScale, haveAngle = s, true
			}
		}
	}
	return m
}

var siPrefixes = map[string]float64{
	"":      1,
	"KILO":  1e3,
	"HECTO": 1e2,
	"DECA":  1e1,
	"DECI":  1e-1,
	"CENTI": 1e-2,
	"MILLI": 1e-3,
	"MICRO": 1e-6,
	"NANO":  1e-9,
}

// unitScale returns the factor converting the unit into millimetres (length) or radians (angle).
func (m *model) unitScale(e *Entity, depth int) (float64, bool) {
	if depth > 4 {
		return 0, false
	}
	if si, ok := e.Record("SI_UNIT"); ok {
		prefix, ok := siPrefixes[si.Enum(0)]
		if !ok {
			return 0, false
		}
		switch si.Enum(1) {
		case "METRE":
			return prefix * 1000, true
		case "RADIAN":
			return prefix, true
		}
		return 0, false
	}
	if cb, ok := e.Record("CONVERSION_BASED_UNIT"); ok {
		ref, err := cb.Ref(1)
		if err != nil {
			return 0, false
		}
		measure, ok := m.file.Entity(ref)
		if !ok {
			return 0, false
		}
		rec, ok := measure.Record("MEASURE_WITH_UNIT", "LENGTH_MEASURE_WITH_UNIT", "PLANE_ANGLE_MEASURE_WITH_UNIT")
		if !ok {
			return 0, false
		}
		value, err := rec.Real(0)
		if err != nil {
			return 0, false
		}
		unitRef, err := rec.Ref(1)
		if err != nil {
			return 0, false
		}
		unit, ok := m.file.Entity(unitRef)
		if !ok {
			return 0, false
		}
		base, ok := m.unitScale(unit, depth+1)
		if !ok {
			return 0, false
		}
		return value * base, true
	}
	return 0, false
}

func (m *model) entity(id int) (*Entity, error) {
	e, ok := m.file.Entity(id)
	if !ok {
		return nil, fmt.Errorf("dangling reference #%d", id)
	}
	return e, nil
}

// record returns the record of #id of one of the given types.
func (m *model) record(id int, types ...string) (Record, error) {
	e, err := m.entity(id)
	if err != nil {
		return Record{}, err
	}
	rec, ok := e.Record(types...)
	if !ok {
		return Record{}, fmt.Errorf("#%d is %s, want %v", id, e.Type(), types)
	}
	return rec, nil
}

func (m *model) point(id int) (model3d.Coord3D, error) {
	rec, err := m.record(id, "CARTESIAN_POINT")
	if err != nil {
		return model3d.Coord3D{}, err
	}
	coords, err := rec.Reals(1)
	if err != nil {
		return model3d.Coord3D{}, err
	}
	return m.coord(coords)
}

func (m *model) coord(c []float64) (model3d.Coord3D, error) {
	var p [3]float64
	if len(c) < 1 || len(c) > 3 {
		return model3d.Coord3D{}, fmt.Errorf("point has %d coordinates", len(c))
	}
	copy(p[:], c)
	return model3d.NewCoord3DArray(p).Scale(m.lengthScale), nil
}

func (m *model) direction(id int) (model3d.Coord3D, error) {
	rec, err := m.record(id, "DIRECTION")
	if err != nil {
		return model3d.Coord3D{}, err
	}
	ratios, err := rec.Reals(1)
	if err != nil {
		return model3d.Coord3D{}, err
	}
	var d [3]float64
	copy(d[:], ratios)
	v := model3d.NewCoord3DArray(d)
	if v.Norm() == 0 {
		return model3d.Coord3D{}, fmt.Errorf("#%d: zero direction", id)
	}
	return v.Normalize(), nil
}

// placement resolves AXIS2_PLACEMENT_3D (and its 2D form) into a frame.
func (m *model) placement(id int) (frame, error) {
	e, err := m.entity(id)
	if err != nil {
		return frame{}, err
	}
	rec, ok := e.Record("AXIS2_PLACEMENT_3D", "AXIS2_PLACEMENT_2D", "AXIS1_PLACEMENT")
	if !ok {
		return frame{}, fmt.Errorf("#%d is %s, want placement", id, e.Type())
	}
	locRef, err := rec.Ref(1)
	if err != nil {
		return frame{}, err
	}
	origin, err := m.point(locRef)
	if err != nil {
		return frame{}, err
	}

	axis := model3d.XYZ(0, 0, 1)
	ref := model3d.XYZ(1, 0, 0)
	switch rec.Type {
	case "AXIS2_PLACEMENT_3D":
		if !rec.IsUnset(2) {
			r, err := rec.Ref(2)
			if err != nil {
				return frame{}, err
			}
			if axis, err = m.direction(r); err != nil {
				return frame{}, err
			}
		}
		if !rec.IsUnset(3) {
			r, err := rec.Ref(3)
			if err != nil {
				return frame{}, err
			}
			if ref, err = m.direction(r); err != nil {
				return frame{}, err
			}
		}
	case "AXIS2_PLACEMENT_2D":
		if !rec.IsUnset(2) {
			r, err := rec.Ref(2)
			if err != nil {
				return frame{}, err
			}
			if ref, err = m.direction(r); err != nil {
				return frame{}, err
			}
		}
	case "AXIS1_PLACEMENT":
		if !rec.IsUnset(2) {
			r, err := rec.Ref(2)
			if err != nil {
				return frame{}, err
			}
			if axis, err = m.direction(r); err != nil {
				return frame{}, err
			}
		}
		ref = perpendicular(axis)
	}
	return newFrame(origin, axis, ref), nil
}

// transformation resolves an ITEM_DEFINED_TRANSFORMATION (or a cartesian operator)
// into the frame mapping child coordinates into the parent.
func (m *model) transformation(id int) (frame, error) {
	e, err := m.entity(id)
	if err != nil {
		return frame{}, err
	}
	if rec, ok := e.Record("ITEM_DEFINED_TRANSFORMATION"); ok {
		r1, err := rec.Ref(2)
		if err != nil {
			return frame{}, err
		}
		r2, err := rec.Ref(3)
		if err != nil {
			return frame{}, err
		}
		a1, err := m.placement(r1)
		if err != nil {
			return frame{}, err
		}
		a2, err := m.placement(r2)
		if err != nil {
			return frame{}, err
		}
		return a2.compose(a1.inverse()), nil
	}
	if rec, ok := e.Record("CARTESIAN_TRANSFORMATION_OPERATOR_3D", "CARTESIAN_TRANSFORMATION_OPERATOR"); ok {
		return m.cartesianOperator(rec)
	}
	return frame{}, fmt.Errorf("#%d is %s, want transformation", id, e.Type())
}

// cartesianOperator handles CARTESIAN_TRANSFORMATION_OPERATOR_3D(name, desc, axis1, axis2, origin, scale, axis3).
// Scaling is not supported and is ignored.
func (m *model) cartesianOperator(rec Record) (frame, error) {
	dir := func(i int, def model3d.Coord3D) (model3d.Coord3D, error) {
		if rec.IsUnset(i) {
			return def, nil
		}
		r, err := rec.Ref(i)
		if err != nil {
			return model3d.Coord3D{}, err
		}
		return m.direction(r)
	}
	x, err := dir(2, model3d.XYZ(1, 0, 0))
	if err != nil {
		return frame{}, err
	}
	z, err := dir(6, model3d.XYZ(0, 0, 1))
	if err != nil {
		return frame{}, err
	}
	originRef, err := rec.Ref(4)
	if err != nil {
		return frame{}, err
	}
	origin, err := m.point(originRef)
	if err != nil {
		return frame{}, err
	}
	return newFrame(origin, z, x), nil
}

func (m *model) length(v float64) float64 {
	return v * m.lengthScale
}

func (m *model) angle(v float64) float64 {
	a := v * m.angleScale
	if m.angleScale == 1 && math.Abs(v) > 2*math.Pi {
		// Files that declare radians but write degrees.
		a = v * math.Pi / 180
	}
	return a
}
