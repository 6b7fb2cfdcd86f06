package stepmesh

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
)

// ConvertRequest describes one whole-model conversion.
type ConvertRequest struct {
	Input     string
	Output    string
	Tolerance domain.Tolerance
}

// ConvertReport is the outcome of a conversion.
type ConvertReport struct {
	Source  string                `json:"source"`
	Output  string                `json:"output,omitempty"`
	Objects []domain.ObjectResult `json:"objects"`
	Tally   domain.Tally          `json:"tally"`
	// Vertices and Faces count the combined mesh.
	Vertices int `json:"vertices"`
	Faces    int `json:"faces"`
}

// Convert tessellates every object of the input and writes all meshes as one STL file.
// Per-object failures are recorded in the report and do not stop the run.
// When no object produced a mesh, no file is written and domain.ErrNoMeshes is returned with the report.
func (p *Pipeline) Convert(ctx context.Context, req ConvertRequest) (*ConvertReport, error) {
	const command = "convert"
	logger := p.logger.With("command", command, "source", req.Input)

	unlock, err := p.lock(ctx, req.Output)
	if err != nil {
		return nil, err
	}
	defer p.release(ctx, unlock, req.Output)

	doc, release, err := p.open(ctx, req.Input, req.Tolerance)
	if err != nil {
		return nil, err
	}
	defer release()

	objects := doc.Objects()
	logger.Info("objects found", "count", len(objects), "tolerance", req.Tolerance.String())

	report := &ConvertReport{Source: req.Input, Objects: make([]domain.ObjectResult, 0, len(objects))}
	combined := mesh.New()
	for i, obj := range objects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := domain.ObjectResult{Index: i, Name: obj.Name()}
		p.emit(ctx, domain.EventObjectStart, command, len(objects), result)
		start := time.Now()

		shape, err := shapeOf(obj)
		if err != nil {
			result.Status, result.Reason = domain.StatusSkipped, err
		} else if m, err := shape.Tessellate(ctx, req.Tolerance); err != nil {
			if interrupted(ctx, err) {
				return report, ctx.Err()
			}
			result.Status = domain.StatusFailed
			result.Reason = &domain.ObjectError{Index: i, Name: obj.Name(), Err: err}
		} else {
			combined.Append(m)
			result.Status = domain.StatusConverted
			result.Vertices, result.Faces = m.CountPoints(), m.CountFacets()
		}

		result.Duration = time.Since(start)
		report.Objects = append(report.Objects, result)
		p.emit(ctx, domain.EventObjectDone, command, len(objects), result)
	}
	report.Tally = domain.Count(report.Objects)

	if combined.IsEmpty() {
		logger.Warn("no meshes generated")
		return report, domain.ErrNoMeshes
	}
	if err := p.writer.WriteFile(req.Output, combined); err != nil {
		return report, fmt.Errorf("failed to write combined mesh: %w", err)
	}
	report.Output = req.Output
	report.Vertices, report.Faces = combined.CountPoints(), combined.CountFacets()
	logger.Info("mesh written", "output", req.Output, "meshes", report.Tally.Converted, "faces", report.Faces)
	return report, nil
}
