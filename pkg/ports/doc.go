/*
Package ports defines the driven ports (interfaces) of the stepmesh pipelines.

These interfaces decouple the conversion pipelines from the CAD kernel that parses and
tessellates STEP files, and from the storage backends that persist manifests.

# Key Interfaces

  - Kernel: Opens a STEP file into a Document (native Go reader or an external CAD process).
  - Document: Owns the imported model and its ordered Objects. Must be closed exactly once.
  - Shape: A boundary-representation solid that can report its bounding box and be tessellated.
  - ManifestStore: Persists and loads per-part export manifests (file, memory, Redis).
  - Locker: Serializes exports that share an output directory (memory, Redis).
*/
package ports
