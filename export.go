package stepmesh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/ports"
)

// ManifestName is the manifest file name used when an export names none.
const ManifestName = "manifest.json"

// ExportRequest describes one per-part export.
type ExportRequest struct {
	Input     string
	OutputDir string
	// Manifest is the manifest store key; defaults to ManifestName inside OutputDir.
	Manifest  string
	Tolerance domain.Tolerance
}

// ManifestKey returns the store key the manifest of this request is saved under.
func (r ExportRequest) ManifestKey() string {
	if r.Manifest != "" {
		return r.Manifest
	}
	return filepath.Join(r.OutputDir, ManifestName)
}

// ExportReport is the outcome of an export.
type ExportReport struct {
	Manifest    *domain.Manifest      `json:"manifest"`
	ManifestKey string                `json:"manifest_key"`
	Objects     []domain.ObjectResult `json:"objects"`
	Tally       domain.Tally          `json:"tally"`
}

// Export writes one STL file per object with a usable shape into OutputDir and saves the
// manifest of written parts. Objects keep their enumeration index whether or not earlier
// objects were skipped. Per-object failures are recorded and do not stop the run; a manifest
// save failure is returned, leaving the written STL files in place.
func (p *Pipeline) Export(ctx context.Context, req ExportRequest) (*ExportReport, error) {
	const command = "export"
	logger := p.logger.With("command", command, "source", req.Input)

	unlock, err := p.lock(ctx, req.OutputDir)
	if err != nil {
		return nil, err
	}
	defer p.release(ctx, unlock, req.OutputDir)

	if err := p.fs.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	doc, release, err := p.open(ctx, req.Input, req.Tolerance)
	if err != nil {
		return nil, err
	}
	defer release()

	objects := doc.Objects()
	logger.Info("objects found", "count", len(objects), "tolerance", req.Tolerance.String())

	report := &ExportReport{
		Manifest:    domain.NewManifest(req.Input),
		ManifestKey: req.ManifestKey(),
		Objects:     make([]domain.ObjectResult, 0, len(objects)),
	}
	for i, obj := range objects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := domain.ObjectResult{Index: i, Name: obj.Name()}
		p.emit(ctx, domain.EventObjectStart, command, len(objects), result)
		start := time.Now()

		rec, err := p.exportObject(ctx, req, i, obj, logger)
		switch {
		case err == nil:
			report.Manifest.Parts = append(report.Manifest.Parts, rec)
			result.Status = domain.StatusConverted
			result.File = rec.File
			result.Vertices, result.Faces = rec.Vertices, rec.Faces
		case interrupted(ctx, err):
			return report, ctx.Err()
		case isSkip(err):
			result.Status, result.Reason = domain.StatusSkipped, err
		default:
			result.Status = domain.StatusFailed
			result.Reason = &domain.ObjectError{Index: i, Name: obj.Name(), Err: err}
		}

		result.Duration = time.Since(start)
		report.Objects = append(report.Objects, result)
		p.emit(ctx, domain.EventObjectDone, command, len(objects), result)
	}
	report.Tally = domain.Count(report.Objects)

	if err := p.store.Save(ctx, report.ManifestKey, report.Manifest); err != nil {
		return report, fmt.Errorf("failed to save manifest: %w", err)
	}
	logger.Info("parts exported", "parts", len(report.Manifest.Parts), "manifest", report.ManifestKey)
	return report, nil
}

func (p *Pipeline) exportObject(ctx context.Context, req ExportRequest, index int, obj ports.Object, logger *slog.Logger) (domain.PartRecord, error) {
	shape, err := shapeOf(obj)
	if err != nil {
		return domain.PartRecord{}, err
	}

	bbox := shape.BoundBox()
	name := domain.PartFileName(index, obj.Name())
	logger.Info("exporting part", "name", obj.Name(), "center", bbox.Center(), "size", bbox.Size())

	m, err := shape.Tessellate(ctx, req.Tolerance)
	if err != nil {
		return domain.PartRecord{}, err
	}
	if err := p.writer.WriteFile(filepath.Join(req.OutputDir, name), m); err != nil {
		return domain.PartRecord{}, err
	}
	if !bbox.IsValid() {
		bbox = m.BoundBox()
	}
	return domain.NewPartRecord(index, obj.Name(), name, bbox, m.CountPoints(), m.CountFacets()), nil
}

func isSkip(err error) bool {
	return errors.Is(err, domain.ErrNoShape) || errors.Is(err, domain.ErrNullShape)
}
