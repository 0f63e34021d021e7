// Package imaging provides the raster primitives of the scanning pipeline:
// loading, grayscale conversion, blurring, Canny edge detection, contrast
// equalization (CLAHE), Otsu binarization, morphology, overlays and PNG
// encoding.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Every function that
// produces an image returns a new buffer whose bounds start at (0,0); inputs
// are never modified.
//
// # Intensity Images
//
// Intermediate results are *image.Gray. ToGray converts any input using the
// ITU-R BT.601 luminance weights (0.299 R + 0.587 G + 0.114 B). Binary
// images hold only 0 (background) and 255 (foreground).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Operations that cannot run on an empty image return ErrEmptyImage.
// Loading and encoding wrap the underlying I/O and codec errors.
package imaging
