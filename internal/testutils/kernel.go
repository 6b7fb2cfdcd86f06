package testutils

import (
	"context"
	"sync"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/unixpickle/model3d/model3d"
)

// FakeKernel serves a fixed list of objects for any path and counts document lifecycles.
type FakeKernel struct {
	Objects []*FakeObject
	// OpenErr, when set, is returned by every Open call.
	OpenErr error

	mu         sync.Mutex
	opened     int
	closed     int
	tolerances []domain.Tolerance
}

// Name implements ports.Kernel.
func (k *FakeKernel) Name() string {
	return "fake"
}

// Open implements ports.Kernel.
func (k *FakeKernel) Open(ctx context.Context, path string) (ports.Document, error) {
	if k.OpenErr != nil {
		return nil, k.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.opened++
	objs := make([]ports.Object, len(k.Objects))
	for i, o := range k.Objects {
		objs[i] = o
	}
	return &fakeDocument{kernel: k, source: path, objects: objs}, nil
}

// OpenAt implements ports.ToleranceOpener and records tol.
func (k *FakeKernel) OpenAt(ctx context.Context, path string, tol domain.Tolerance) (ports.Document, error) {
	k.mu.Lock()
	k.tolerances = append(k.tolerances, tol)
	k.mu.Unlock()
	return k.Open(ctx, path)
}

// Tolerances returns the tolerances documents were opened at.
func (k *FakeKernel) Tolerances() []domain.Tolerance {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]domain.Tolerance(nil), k.tolerances...)
}

// Opened returns how many documents were opened.
func (k *FakeKernel) Opened() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.opened
}

// Closed returns how many documents were closed.
func (k *FakeKernel) Closed() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closed
}

type fakeDocument struct {
	kernel  *FakeKernel
	source  string
	objects []ports.Object
	once    sync.Once
}

func (d *fakeDocument) Source() string          { return d.source }
func (d *fakeDocument) Objects() []ports.Object { return d.objects }

func (d *fakeDocument) Close() error {
	d.once.Do(func() {
		d.kernel.mu.Lock()
		d.kernel.closed++
		d.kernel.mu.Unlock()
	})
	return nil
}

// FakeObject is a named object; a nil Shape means the object exposes none.
type FakeObject struct {
	ObjName  string
	ObjShape ports.Shape
}

func (o *FakeObject) Name() string { return o.ObjName }

func (o *FakeObject) Shape() (ports.Shape, bool) {
	return o.ObjShape, o.ObjShape != nil
}

// FakeShape returns Mesh (or Err) from Tessellate and the mesh bounds from BoundBox.
type FakeShape struct {
	Null bool
	Mesh *mesh.Mesh
	Err  error
	// Block makes Tessellate wait for its context to be done.
	Block bool

	mu    sync.Mutex
	calls []domain.Tolerance
}

func (s *FakeShape) IsNull() bool { return s.Null }

func (s *FakeShape) BoundBox() domain.BoundBox {
	if s.Mesh == nil {
		return domain.EmptyBoundBox()
	}
	return s.Mesh.BoundBox()
}

func (s *FakeShape) Tessellate(ctx context.Context, tol domain.Tolerance) (*mesh.Mesh, error) {
	s.mu.Lock()
	s.calls = append(s.calls, tol)
	s.mu.Unlock()
	if s.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Mesh, nil
}

// Calls returns the tolerances Tessellate was called with.
func (s *FakeShape) Calls() []domain.Tolerance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Tolerance(nil), s.calls...)
}

// Tetrahedron returns a closed 4-facet mesh with one corner at offset.
func Tetrahedron(offset float64) *mesh.Mesh {
	b := mesh.NewBuilder()
	o := model3d.XYZ(offset, offset, offset)
	p0, p1, p2, p3 := o, o.Add(model3d.XYZ(1, 0, 0)), o.Add(model3d.XYZ(0, 1, 0)), o.Add(model3d.XYZ(0, 0, 1))
	b.AddTriangle(p0, p2, p1)
	b.AddTriangle(p0, p1, p3)
	b.AddTriangle(p0, p3, p2)
	b.AddTriangle(p1, p2, p3)
	return b.Mesh()
}
