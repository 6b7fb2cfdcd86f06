/*
Package stepmesh converts STEP (ISO 10303-21) CAD files into STL triangle meshes.

It offers two pipelines over a pluggable CAD kernel:

  - Convert: tessellates every object of the model and writes one combined STL file.
  - Export: writes one STL file per part and a JSON manifest recording each part's name,
    bounding box, center, size and mesh statistics.

Inspect lists the objects of a file without writing anything.

# Kernels

The default kernel is a pure-Go STEP reader and tessellator (package pkg/adapters/step). An
external CAD toolkit can be plugged in through pkg/adapters/process, or any ports.Kernel.

# Usage

	p := stepmesh.New(stepmesh.WithLogger(logger))

	report, err := p.Export(ctx, stepmesh.ExportRequest{
		Input:     "machine.step",
		OutputDir: "parts",
		Tolerance: domain.DefaultExportTolerance(),
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(report.Tally.Converted, "parts written to", report.ManifestKey)

Every run opens its own Document and closes it on every exit path. Objects that cannot be
tessellated are reported as failed ObjectResults; they do not abort the run.
*/
package stepmesh
