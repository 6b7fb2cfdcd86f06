package ports

import (
	"context"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
)

// Kernel loads STEP files into documents.
type Kernel interface {
	// Name identifies the kernel in logs and banners (e.g. "native").
	Name() string

	// Open imports the STEP file at path into a new Document.
	// Returns an error wrapping domain.ErrKernelUnavailable when the kernel cannot run at all.
	Open(ctx context.Context, path string) (Document, error)
}

// ToleranceOpener is implemented by kernels that tessellate while importing.
// The pipeline opens documents through OpenAt with the tolerance of the run, so the
// import result is reused by Shape.Tessellate at that tolerance.
type ToleranceOpener interface {
	OpenAt(ctx context.Context, path string, tol domain.Tolerance) (Document, error)
}

// Document is the in-memory handle of an imported model.
type Document interface {
	// Source returns the path the document was loaded from.
	Source() string

	// Objects returns the document objects in their import order.
	Objects() []Object

	// Close releases the document. Calling it more than once is a no-op.
	Close() error
}

// Object is one entry of a Document.
type Object interface {
	Name() string

	// Shape returns the object's shape, or false when the object exposes none.
	Shape() (Shape, bool)
}

// Shape is a boundary-representation solid owned by its Object.
type Shape interface {
	// IsNull reports whether the shape holds no geometry.
	IsNull() bool

	// BoundBox returns the axis-aligned bounding box of the shape.
	BoundBox() domain.BoundBox

	// Tessellate converts the shape into a triangle mesh with the given tolerance.
	Tessellate(ctx context.Context, tol domain.Tolerance) (*mesh.Mesh, error)
}
