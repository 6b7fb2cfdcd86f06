package stepmesh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/stepmesh/internal/logging"
	"github.com/aretw0/stepmesh/pkg/adapters/file"
	"github.com/aretw0/stepmesh/pkg/adapters/memory"
	"github.com/aretw0/stepmesh/pkg/adapters/step"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/spf13/afero"
)

// lockTTL bounds how long a crashed run can keep an output path locked.
// Lockers that expire keys extend them while the run holds the lock.
const lockTTL = 10 * time.Minute

// Pipeline is the high-level entry point of the stepmesh library.
// It runs the whole-model converter and the per-part exporter against a CAD kernel.
// A Pipeline is safe for concurrent use; every run opens and closes its own Document.
type Pipeline struct {
	kernel ports.Kernel
	fs     afero.Fs
	writer *mesh.FileWriter
	store  ports.ManifestStore
	locker ports.Locker
	hooks  domain.Hooks
	logger *slog.Logger
}

// Option defines a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithKernel sets the CAD kernel (default: the native STEP kernel on the pipeline filesystem).
func WithKernel(k ports.Kernel) Option {
	return func(p *Pipeline) {
		p.kernel = k
	}
}

// WithFs sets the filesystem STL files (and, by default, manifests) are written to.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) {
		p.fs = fs
	}
}

// WithManifestStore sets where export manifests are saved (default: JSON files on the pipeline filesystem).
func WithManifestStore(s ports.ManifestStore) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithLocker sets the locker serializing runs that write the same output (default: in-process).
func WithLocker(l ports.Locker) Option {
	return func(p *Pipeline) {
		p.locker = l
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(p *Pipeline) {
		p.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline. Without options it reads and writes the OS filesystem with the native kernel.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}

	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	if p.kernel == nil {
		p.kernel = step.New(step.WithFs(p.fs), step.WithLogger(p.logger))
	}
	if p.store == nil {
		p.store = file.New(p.fs, "")
	}
	if p.locker == nil {
		p.locker = memory.NewLocker()
	}
	p.writer = mesh.NewFileWriter(p.fs)
	p.logger = p.logger.With("kernel", p.kernel.Name())
	return p
}

// Kernel returns the kernel the pipeline runs on.
func (p *Pipeline) Kernel() ports.Kernel {
	return p.kernel
}

// Store returns the manifest store.
func (p *Pipeline) Store() ports.ManifestStore {
	return p.store
}

// Fs returns the output filesystem.
func (p *Pipeline) Fs() afero.Fs {
	return p.fs
}

// open loads the document for a run at tol and returns a release func that logs close failures.
func (p *Pipeline) open(ctx context.Context, path string, tol domain.Tolerance) (ports.Document, func(), error) {
	var doc ports.Document
	var err error
	if opener, ok := p.kernel.(ports.ToleranceOpener); ok {
		doc, err = opener.OpenAt(ctx, path, tol)
	} else {
		doc, err = p.kernel.Open(ctx, path)
	}
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := doc.Close(); err != nil {
			p.logger.Warn("failed to close document", "source", path, "err", err)
		}
	}
	return doc, release, nil
}

// lock takes the lock on an output path; the key is the cleaned absolute path when it can be resolved.
func (p *Pipeline) lock(ctx context.Context, path string) (ports.UnlockFunc, error) {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	unlock, err := p.locker.Lock(ctx, key, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return unlock, nil
}

func (p *Pipeline) release(ctx context.Context, unlock ports.UnlockFunc, path string) {
	// The lock must be released even when the run was cancelled.
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		p.logger.Warn("failed to release lock", "path", path, "err", err)
	}
}

func (p *Pipeline) emit(ctx context.Context, typ domain.EventType, command string, total int, r domain.ObjectResult) {
	e := &domain.ObjectEvent{
		Timestamp: time.Now(),
		Type:      typ,
		Command:   command,
		Total:     total,
		Result:    r,
	}
	switch typ {
	case domain.EventObjectStart:
		if p.hooks.OnObjectStart != nil {
			p.hooks.OnObjectStart(ctx, e)
		}
	case domain.EventObjectDone:
		if p.hooks.OnObjectDone != nil {
			p.hooks.OnObjectDone(ctx, e)
		}
	}
}

// shapeOf resolves the object's usable shape, or the skip reason.
func shapeOf(obj ports.Object) (ports.Shape, error) {
	shape, ok := obj.Shape()
	if !ok || shape == nil {
		return nil, domain.ErrNoShape
	}
	if shape.IsNull() {
		return nil, domain.ErrNullShape
	}
	return shape, nil
}

// interrupted reports whether err comes from the run context being done.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
