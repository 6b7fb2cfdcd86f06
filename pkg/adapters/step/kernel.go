package step

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/stepmesh/internal/logging"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/spf13/afero"
)

// boundsDeflection is the fixed tolerance used to measure shapes.
var boundsDeflection = deflection{linear: 0.01, angular: 0.1}

// Kernel is the native STEP kernel.
type Kernel struct {
	fs     afero.Fs
	logger *slog.Logger
}

// Option configures the Kernel.
type Option func(*Kernel)

// WithFs sets the filesystem STEP files are read from.
func WithFs(fs afero.Fs) Option {
	return func(k *Kernel) {
		k.fs = fs
	}
}

// WithLogger sets the logger used to report skipped faces.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) {
		k.logger = logger
	}
}

// New creates a native kernel reading from the OS filesystem.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		fs:     afero.NewOsFs(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name implements ports.Kernel.
func (k *Kernel) Name() string {
	return "native"
}

// Open implements ports.Kernel.
func (k *Kernel) Open(ctx context.Context, path string) (ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := k.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	m := newModel(file)
	defs, err := m.discover()
	if err != nil {
		return nil, fmt.Errorf("failed to read product structure of %s: %w", path, err)
	}

	doc := &document{source: path}
	for _, d := range defs {
		obj := &object{name: d.name}
		if len(d.items) > 0 {
			obj.shape = &shape{model: m, items: d.items, logger: k.logger.With("object", d.name)}
		} else {
			obj.shape = &shape{null: true}
		}
		doc.objects = append(doc.objects, obj)
	}
	k.logger.Debug("step file loaded",
		"path", path,
		"schema", file.Header.Schemas,
		"entities", file.Len(),
		"objects", len(doc.objects),
		"length_scale", m.lengthScale,
	)
	return doc, nil
}

type document struct {
	source  string
	objects []ports.Object
	closed  bool
	mu      sync.Mutex
}

func (d *document) Source() string {
	return d.source
}

func (d *document) Objects() []ports.Object {
	return d.objects
}

func (d *document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.objects = nil
	return nil
}

type object struct {
	name  string
	shape *shape
}

func (o *object) Name() string {
	return o.name
}

func (o *object) Shape() (ports.Shape, bool) {
	return o.shape, true
}

type shape struct {
	model  *model
	items  []placedItem
	null   bool
	logger *slog.Logger

	boundsOnce sync.Once
	bounds     domain.BoundBox
}

func (s *shape) IsNull() bool {
	return s.null
}

// BoundBox measures a fine tessellation of the shape, computed once.
func (s *shape) BoundBox() domain.BoundBox {
	s.boundsOnce.Do(func() {
		s.bounds = domain.EmptyBoundBox()
		if s.null {
			return
		}
		m, err := newTessellator(context.Background(), s.model, boundsDeflection).run(s.items)
		if err != nil {
			return
		}
		s.bounds = m.BoundBox()
	})
	return s.bounds
}

func (s *shape) Tessellate(ctx context.Context, tol domain.Tolerance) (*mesh.Mesh, error) {
	if s.null {
		return nil, domain.ErrNullShape
	}
	d := deflection{linear: tol.LinearDeflection, angular: tol.AngularDeflection}
	if tol.Relative {
		d.linear = tol.Linear(s.BoundBox())
	}
	return s.tessellate(ctx, d)
}

func (s *shape) tessellate(ctx context.Context, d deflection) (*mesh.Mesh, error) {
	t := newTessellator(ctx, s.model, d)
	m, err := t.run(s.items)
	for _, skipped := range t.skipped {
		s.logger.Warn("face skipped", "error", skipped)
	}
	return m, err
}
