package domain

import "fmt"

// Tolerance controls how finely a shape is tessellated.
type Tolerance struct {
	// LinearDeflection is the maximum distance between the mesh and the exact surface.
	LinearDeflection float64 `json:"linear_deflection" yaml:"linear_deflection" mapstructure:"linear_deflection" validate:"gt=0"`
	// AngularDeflection is the maximum angle (radians) between adjacent facets along a curve.
	AngularDeflection float64 `json:"angular_deflection" yaml:"angular_deflection" mapstructure:"angular_deflection" validate:"gt=0,lte=3.141592653589793"`
	// Relative scales LinearDeflection by the shape's bounding box diagonal.
	Relative bool `json:"relative" yaml:"relative" mapstructure:"relative"`
}

// DefaultConvertTolerance is the tolerance of the whole-model converter.
func DefaultConvertTolerance() Tolerance {
	return Tolerance{LinearDeflection: 0.1, AngularDeflection: 0.5}
}

// DefaultExportTolerance is the tolerance of the per-part exporter.
func DefaultExportTolerance() Tolerance {
	return Tolerance{LinearDeflection: 0.1, AngularDeflection: 0.3}
}

// Linear returns the absolute linear deflection for a shape with the given bounding box.
func (t Tolerance) Linear(bbox BoundBox) float64 {
	if !t.Relative {
		return t.LinearDeflection
	}
	if d := bbox.Diagonal(); d > 0 {
		return t.LinearDeflection * d
	}
	return t.LinearDeflection
}

func (t Tolerance) String() string {
	mode := "absolute"
	if t.Relative {
		mode = "relative"
	}
	return fmt.Sprintf("linear=%g angular=%g %s", t.LinearDeflection, t.AngularDeflection, mode)
}
