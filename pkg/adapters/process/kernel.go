package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/stepmesh/internal/logging"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/aretw0/stepmesh/pkg/ports"
)

// unavailableHint tells the user how to fix an environment error.
const unavailableHint = "install the CAD toolkit or set process.command"

// Kernel delegates loading and tessellation to an external CAD toolkit command.
//
// The command receives its arguments as STEPMESH_ARG_* environment variables
// (INPUT, LINEAR_DEFLECTION, ANGULAR_DEFLECTION, RELATIVE) and prints a Response
// as JSON on stdout. It runs once per distinct tolerance requested from a document.
type Kernel struct {
	cfg      Config
	logger   *slog.Logger
	lookPath func(string) (string, error)
}

// Option configures the Kernel.
type Option func(*Kernel)

// WithLogger sets the logger used to report command runs.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) {
		k.logger = logger
	}
}

// New creates a kernel running the configured command.
func New(cfg Config, opts ...Option) *Kernel {
	k := &Kernel{
		cfg:      cfg,
		logger:   logging.NewNop(),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name implements ports.Kernel.
func (k *Kernel) Name() string {
	return "process:" + filepath.Base(k.cfg.Command)
}

// Open implements ports.Kernel. The objects are listed by running the command with
// the export tolerance.
func (k *Kernel) Open(ctx context.Context, path string) (ports.Document, error) {
	return k.OpenAt(ctx, path, domain.DefaultExportTolerance())
}

// OpenAt implements ports.ToleranceOpener: the listing run tessellates at tol, so a
// conversion at tol runs the command once.
func (k *Kernel) OpenAt(ctx context.Context, path string, tol domain.Tolerance) (ports.Document, error) {
	if err := k.cfg.Validate(); err != nil {
		return nil, err
	}
	exe, err := k.lookPath(k.cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %v", domain.ErrKernelUnavailable, k.cfg.Command, unavailableHint, err)
	}

	doc := &document{
		kernel: k,
		exe:    exe,
		source: path,
		runs:   make(map[domain.Tolerance]*Response),
	}
	resp, err := doc.run(ctx, tol)
	if err != nil {
		return nil, err
	}
	for i, p := range resp.Objects {
		doc.objects = append(doc.objects, &object{doc: doc, index: i, payload: p})
	}
	return doc, nil
}

type document struct {
	kernel  *Kernel
	exe     string
	source  string
	objects []ports.Object

	mu     sync.Mutex
	runs   map[domain.Tolerance]*Response
	closed bool
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
	d.closed = true
	d.runs = nil
	return nil
}

// run executes the command for a tolerance, reusing earlier results.
func (d *document) run(ctx context.Context, tol domain.Tolerance) (*Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("document is closed")
	}
	if resp, ok := d.runs[tol]; ok {
		return resp, nil
	}

	cfg := d.kernel.cfg
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.exe, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.environ(toleranceArgs(d.source, tol))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.kernel.logger.Debug("running cad kernel", "command", d.exe, "input", d.source, "tolerance", tol.String())
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("cad kernel interrupted: %w", ctxErr)
		}
		return nil, fmt.Errorf("cad kernel failed: %v. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, fmt.Errorf("cad kernel returned invalid output: %w", err)
	}
	d.runs[tol] = &resp
	return &resp, nil
}

type object struct {
	doc     *document
	index   int
	payload ObjectPayload
}

func (o *object) Name() string {
	return o.payload.Name
}

func (o *object) Shape() (ports.Shape, bool) {
	if o.payload.NoShape {
		return nil, false
	}
	return &shape{obj: o}, true
}

type shape struct {
	obj *object
}

func (s *shape) IsNull() bool {
	return s.obj.payload.Null
}

func (s *shape) BoundBox() domain.BoundBox {
	if bbox := s.obj.payload.BBox; bbox != nil {
		return *bbox
	}
	if m, err := s.obj.payload.Mesh(); err == nil && len(m.Points) > 0 {
		return m.BoundBox()
	}
	return domain.EmptyBoundBox()
}

func (s *shape) Tessellate(ctx context.Context, tol domain.Tolerance) (*mesh.Mesh, error) {
	if s.IsNull() {
		return nil, domain.ErrNullShape
	}
	resp, err := s.obj.doc.run(ctx, tol)
	if err != nil {
		return nil, err
	}
	if s.obj.index >= len(resp.Objects) {
		return nil, fmt.Errorf("cad kernel dropped object %d at %s", s.obj.index, tol)
	}
	p := resp.Objects[s.obj.index]
	if p.Error != "" {
		return nil, errors.New(p.Error)
	}
	m, err := p.Mesh()
	if err != nil {
		return nil, err
	}
	if m.IsEmpty() {
		return nil, domain.ErrEmptyMesh
	}
	return m, nil
}
