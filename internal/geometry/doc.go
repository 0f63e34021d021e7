// Package geometry provides the planar geometry used to straighten a
// photographed page: canonical corner ordering and perspective rectification.
//
// # Coordinate System
//
// Points use floating-point image coordinates with (0,0) at the top-left
// corner, X increasing rightward and Y increasing downward. Integer pixel
// (x, y) has its sample at exactly (x, y).
//
// # Corner Ordering
//
// A Quad is always stored in canonical order: top-left, top-right,
// bottom-right, bottom-left. OrderPoints uses the coordinate sum/difference
// heuristic:
//
//   - top-left has the smallest x+y
//   - bottom-right has the largest x+y
//   - top-right has the smallest y-x
//   - bottom-left has the largest y-x
//
// The heuristic is constant time and exact for pages held roughly upright.
// It is not rotation invariant: near 45 degrees of rotation two corners can
// tie and the same point may win two roles. AngleOrderer sorts by angle
// around the centroid instead and is safe for any rotation.
//
// # Rectification
//
// Rectify maps the quadrilateral to an axis-aligned rectangle whose width is
// the longer of the top and bottom edges and whose height is the longer of
// the left and right edges (both floored). The exact projective transform is
// solved from the four correspondences and applied by inverse mapping with
// bilinear sampling.
package geometry
