/*
Package step implements a native Go CAD kernel for STEP (ISO 10303-21) files.

The kernel reads the exchange structure into an entity table, discovers the products
(parts) of the model together with their assembly placements, and tessellates their
boundary representations into triangle meshes.

Supported geometry:

  - Faceted and tessellated solids (FACETED_BREP, POLY_LOOP, TRIANGULATED_FACE).
  - Planar faces bounded by lines, polylines, circles, ellipses and B-spline curves.
  - Cylindrical, conical, spherical and toroidal faces, tessellated over the parameter
    range spanned by their boundary.
  - B-spline surfaces, tessellated over their whole knot domain (trimming is ignored).

Faces on other surfaces (offset, swept) are skipped; an object none of whose faces can
be meshed fails with domain.ErrUnsupportedGeometry.
*/
package step
