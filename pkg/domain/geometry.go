package domain

import "math"

// Vec3 is a point or extent in model space, serialized as a 3-element JSON array.
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Norm returns the euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// BoundBox is an axis-aligned bounding box.
// The zero value is a degenerate box at the origin; use EmptyBoundBox to start an accumulation.
type BoundBox struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// EmptyBoundBox returns an inverted box that any Extend call will overwrite.
func EmptyBoundBox() BoundBox {
	inf := math.Inf(1)
	return BoundBox{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsValid reports whether the box encloses at least one point.
func (b BoundBox) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Extend grows the box to include p.
func (b *BoundBox) Extend(p Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

// Join grows the box to include o. Invalid boxes are ignored.
func (b *BoundBox) Join(o BoundBox) {
	if !o.IsValid() {
		return
	}
	b.Extend(o.Min)
	b.Extend(o.Max)
}

// Center returns (Min + Max) / 2 per axis.
func (b BoundBox) Center() Vec3 {
	return Vec3{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns Max - Min per axis.
func (b BoundBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Diagonal returns the length of the box diagonal, or 0 for an invalid box.
func (b BoundBox) Diagonal() float64 {
	if !b.IsValid() {
		return 0
	}
	return b.Size().Norm()
}
