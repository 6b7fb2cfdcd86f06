package domain

import (
	"errors"
	"fmt"
)

// ErrKernelUnavailable is returned when the CAD kernel backing a run cannot be used.
var ErrKernelUnavailable = errors.New("cad kernel unavailable")

// ErrNoShape is the skip reason for objects that expose no shape at all.
var ErrNoShape = errors.New("object has no shape")

// ErrNullShape is the skip reason for objects whose shape is null or empty.
var ErrNullShape = errors.New("shape is null")

// ErrUnsupportedGeometry is returned when a kernel cannot tessellate part of a shape.
var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// ErrEmptyMesh is returned when tessellation succeeds but produces no facets.
var ErrEmptyMesh = errors.New("tessellation produced no facets")

// ErrNoMeshes is returned by the whole-model converter when no object produced a mesh.
var ErrNoMeshes = errors.New("no meshes generated")

// ErrManifestNotFound is returned when a manifest cannot be found in a store.
var ErrManifestNotFound = errors.New("manifest not found")

// ObjectError ties a per-object failure to the object it happened on.
type ObjectError struct {
	Index int
	Name  string
	Err   error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("object %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}
