package domain

import (
	"fmt"
	"strings"
)

// PartRecord describes one exported part. It is built once and never mutated.
type PartRecord struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Center   Vec3     `json:"center"`
	Size     Vec3     `json:"size"`
	BBox     BoundBox `json:"bbox"`
	Vertices int      `json:"vertices"`
	Faces    int      `json:"faces"`
}

// NewPartRecord derives center and size from the bounding box.
func NewPartRecord(index int, name, file string, bbox BoundBox, vertices, faces int) PartRecord {
	return PartRecord{
		Index:    index,
		Name:     name,
		File:     file,
		Center:   bbox.Center(),
		Size:     bbox.Size(),
		BBox:     bbox,
		Vertices: vertices,
		Faces:    faces,
	}
}

// Manifest is the persisted summary of a per-part export.
type Manifest struct {
	Source string       `json:"source"`
	Parts  []PartRecord `json:"parts"`
}

// NewManifest creates an empty manifest. Parts is never nil so it encodes as [].
func NewManifest(source string) *Manifest {
	return &Manifest{
		Source: source,
		Parts:  []PartRecord{},
	}
}

// Part returns the record with the given index.
func (m *Manifest) Part(index int) (PartRecord, bool) {
	for _, p := range m.Parts {
		if p.Index == index {
			return p, true
		}
	}
	return PartRecord{}, false
}

var nameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// SanitizeName makes an object name safe to embed in a file name.
func SanitizeName(name string) string {
	return nameReplacer.Replace(name)
}

// PartFileName builds the per-part STL file name: part_<3-digit index>_<sanitized name>.stl.
func PartFileName(index int, name string) string {
	return fmt.Sprintf("part_%03d_%s.stl", index, SanitizeName(name))
}
