/*
Package domain contains the core domain models of the stepmesh conversion pipelines.

It defines the entities shared by kernels, stores and adapters: bounding boxes,
tessellation tolerances, per-part records and the manifest that collects them, and the
typed per-object results produced while walking a document. This package is kept pure
and free of I/O.

# Key Entities

  - Tolerance: Linear and angular deflection used when tessellating a shape.
  - BoundBox: Axis-aligned bounding box with center and size helpers.
  - PartRecord: Geometry metadata and mesh statistics of one exported part.
  - Manifest: The source path plus the ordered list of PartRecords.
  - ObjectResult: Outcome of processing one document object (converted, skipped or failed).
*/
package domain
