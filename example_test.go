package stepmesh_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/testutils"
	"github.com/aretw0/stepmesh/pkg/adapters/memory"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/spf13/afero"
)

// ExamplePipeline_Export demonstrates the per-part exporter on an in-memory filesystem.
// This is useful for testing, embedded scenarios, or when the parts go to a non-OS filesystem.
func ExamplePipeline_Export() {
	// 1. Put the STEP file on the filesystem the pipeline reads and writes.
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/in/assembly.step", []byte(testutils.Assembly), 0o644); err != nil {
		log.Fatal(err)
	}

	// 2. Keep manifests in memory instead of writing manifest.json.
	store := memory.NewStore()
	p := stepmesh.New(stepmesh.WithFs(fs), stepmesh.WithManifestStore(store))

	// 3. Export every part.
	report, err := p.Export(context.Background(), stepmesh.ExportRequest{
		Input:     "/in/assembly.step",
		OutputDir: "/out",
		Tolerance: domain.DefaultExportTolerance(),
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range report.Objects {
		fmt.Printf("%d %s: %s\n", r.Index, r.Name, r.Status)
	}
	for _, part := range report.Manifest.Parts {
		fmt.Printf("%s: %d faces, center (%.1f, %.1f, %.1f)\n", part.File, part.Faces, part.Center[0], part.Center[1], part.Center[2])
	}
	// Output:
	// 0 Assembly: skipped
	// 1 Cube: converted
	// 2 Cube001: converted
	// part_001_Cube.stl: 12 faces, center (5.0, 5.0, 5.0)
	// part_002_Cube001.stl: 12 faces, center (15.0, 5.0, 5.0)
}

// ExamplePipeline_Convert demonstrates the whole-model converter.
func ExamplePipeline_Convert() {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/in/cube.step", []byte(testutils.FacetedCube), 0o644); err != nil {
		log.Fatal(err)
	}

	p := stepmesh.New(stepmesh.WithFs(fs))
	report, err := p.Convert(context.Background(), stepmesh.ConvertRequest{
		Input:     "/in/cube.step",
		Output:    "/out/model.stl",
		Tolerance: domain.DefaultConvertTolerance(),
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s: %d vertices, %d faces\n", report.Output, report.Vertices, report.Faces)
	// Output:
	// /out/model.stl: 8 vertices, 12 faces
}
