// Package detection finds the outline of a document in a photo.
//
// The locator runs a fixed chain of steps:
//
//  1. Convert to grayscale, blur and run Canny edge detection
//  2. Group edge pixels into 8-connected components and trace the outer
//     boundary of each one
//  3. Rank the boundaries by enclosed area, largest first
//  4. Simplify each boundary with Douglas-Peucker at 2% of its perimeter
//  5. Accept the first polygon with four vertices whose area and aspect
//     ratio are plausible for a sheet of paper
//
// The accepted corners are optionally refined by refitting each side to the
// boundary points between two corners and intersecting neighbouring sides.
//
// # Coordinate System
//
// Coordinates are pixel positions in the input image:
//   - Origin at the top-left corner of img.Bounds()
//   - X increases rightward
//   - Y increases downward
//
// Corners are returned in boundary order, which is clockwise but starts at
// an arbitrary corner. Use geometry.OrderPoints before rectifying.
//
// # Limitations
//
// The locator expects a sheet that contrasts with its background and whose
// edges are fully visible. A page that fills most of the frame, or one whose
// edges are broken by shadows or fingers, is not found. Not finding a page
// is an ordinary outcome and is reported as a nil quad, not as an error.
package detection
