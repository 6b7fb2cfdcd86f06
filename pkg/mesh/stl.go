package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/unixpickle/model3d/model3d"
)

const stlRecordSize = 4*3*4 + 2

// WriteSTL encodes m as binary STL.
func WriteSTL(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	if err := model3d.WriteSTL(bw, m.Triangles()); err != nil {
		return fmt.Errorf("failed to encode stl: %w", err)
	}
	return bw.Flush()
}

// ReadSTL decodes a binary STL, merging vertices with identical coordinates.
func ReadSTL(r io.Reader) (*Mesh, error) {
	var header struct {
		H    [80]byte
		NTri uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read stl header: %w", err)
	}

	b := NewBuilder()
	buf := make([]byte, stlRecordSize)
	for i := 0; i < int(header.NTri); i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read stl facet %d: %w", i, err)
		}
		var tri [3]model3d.Coord3D
		for v := range tri {
			const start = 3 * 4 // skip normal
			var c [3]float64
			for k := range c {
				bits := binary.LittleEndian.Uint32(buf[start+12*v+4*k:])
				c[k] = float64(math.Float32frombits(bits))
			}
			tri[v] = model3d.NewCoord3DArray(c)
		}
		i1, i2, i3 := b.Point(tri[0]), b.Point(tri[1]), b.Point(tri[2])
		b.mesh.Facets = append(b.mesh.Facets, [3]int{i1, i2, i3})
	}
	return b.Mesh(), nil
}

// FileWriter writes meshes as STL files on a filesystem.
type FileWriter struct {
	Fs afero.Fs
}

// NewFileWriter returns a writer on fs, or on the OS filesystem when fs is nil.
func NewFileWriter(fs afero.Fs) *FileWriter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileWriter{Fs: fs}
}

// WriteFile writes m to path, creating the parent directory and truncating any existing file.
// On failure the file is removed.
func (w *FileWriter) WriteFile(path string, m *Mesh) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := w.Fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := w.Fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
		// A failed write leaves no partial file behind.
		if err != nil {
			_ = w.Fs.Remove(path)
		}
	}()

	return WriteSTL(f, m)
}

// ReadFile reads an STL file from the writer's filesystem.
func (w *FileWriter) ReadFile(path string) (*Mesh, error) {
	f, err := w.Fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSTL(bufio.NewReader(f))
}
