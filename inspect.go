package stepmesh

import (
	"context"

	"github.com/aretw0/stepmesh/pkg/domain"
)

// ObjectInfo describes one document object without tessellating it.
type ObjectInfo struct {
	Index    int              `json:"index"`
	Name     string           `json:"name"`
	HasShape bool             `json:"has_shape"`
	Null     bool             `json:"null"`
	BBox     *domain.BoundBox `json:"bbox,omitempty"`
	// File is the part file name an export would write for this object.
	File string `json:"file,omitempty"`
}

// Exportable reports whether an export would try to write this object.
func (o ObjectInfo) Exportable() bool {
	return o.HasShape && !o.Null
}

// InspectReport lists the objects of a STEP file.
type InspectReport struct {
	Source  string       `json:"source"`
	Kernel  string       `json:"kernel"`
	Objects []ObjectInfo `json:"objects"`
	// BBox joins the boxes of all measurable objects; nil when there are none.
	BBox *domain.BoundBox `json:"bbox,omitempty"`
}

// Inspect opens the input and reports its objects and bounding boxes. Nothing is written.
func (p *Pipeline) Inspect(ctx context.Context, input string) (*InspectReport, error) {
	doc, release, err := p.open(ctx, input, domain.DefaultExportTolerance())
	if err != nil {
		return nil, err
	}
	defer release()

	objects := doc.Objects()
	report := &InspectReport{
		Source:  input,
		Kernel:  p.kernel.Name(),
		Objects: make([]ObjectInfo, 0, len(objects)),
	}
	total := domain.EmptyBoundBox()
	for i, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info := ObjectInfo{Index: i, Name: obj.Name()}
		shape, ok := obj.Shape()
		info.HasShape = ok && shape != nil
		if info.HasShape {
			info.Null = shape.IsNull()
		}
		if info.Exportable() {
			info.File = domain.PartFileName(i, obj.Name())
			if bbox := shape.BoundBox(); bbox.IsValid() {
				info.BBox = &bbox
				total.Join(bbox)
			}
		}
		report.Objects = append(report.Objects, info)
	}
	if total.IsValid() {
		report.BBox = &total
	}
	p.logger.Debug("inspected", "source", input, "objects", len(objects))
	return report, nil
}
