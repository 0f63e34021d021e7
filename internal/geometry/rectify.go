package geometry

import (
	"image"
	"math"

	dimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/docscan/internal/imaging"
)

// OutputSize returns the rectified width and height for q: the floor of the
// longer horizontal edge and the floor of the longer vertical edge.
func OutputSize(q Quad) (int, int) {
	widthA := q.BR().Dist(q.BL())
	widthB := q.TR().Dist(q.TL())
	heightA := q.TR().Dist(q.BR())
	heightB := q.TL().Dist(q.BL())

	w := math.Floor(math.Max(widthA, widthB))
	h := math.Floor(math.Max(heightA, heightB))
	if math.IsNaN(w) || math.IsNaN(h) {
		return 0, 0
	}
	return int(w), int(h)
}

// Rectify warps the region bounded by q (canonical order) to an upright
// rectangle of OutputSize(q). The source is sampled bilinearly through the
// inverse projective map, so every output pixel reads from inside the quad.
//
// Gray input yields *image.Gray; anything else yields *image.NRGBA. The
// input is never modified.
//
// Returns imaging.ErrEmptyImage for a source with zero width or height, and
// an error wrapping ErrInvalidGeometry when either output dimension is not
// positive or the corner correspondences are singular.
func Rectify(img image.Image, q Quad) (image.Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, imaging.ErrEmptyImage
	}
	w, h := OutputSize(q)
	if w <= 0 || h <= 0 {
		return nil, &GeometryError{Width: w, Height: h, Reason: "quad has no extent"}
	}
	if collapsedCorner(q) {
		return nil, &GeometryError{Width: w, Height: h, Reason: "corners are collinear"}
	}

	// A one-pixel-wide output still needs a non-degenerate target span.
	right := float64(max(w-1, 1))
	bottom := float64(max(h-1, 1))
	dst := [4]Point{
		{X: 0, Y: 0},
		{X: right, Y: 0},
		{X: right, Y: bottom},
		{X: 0, Y: bottom},
	}
	// Sampling works in buffer coordinates starting at (0,0).
	origin := img.Bounds().Min
	var src [4]Point
	for i, p := range q {
		src[i] = Point{X: p.X - float64(origin.X), Y: p.Y - float64(origin.Y)}
	}

	// Solve dst -> src directly so each output pixel is a single lookup.
	H, ok := ComputeHomography(dst, src)
	if !ok {
		return nil, &GeometryError{Width: w, Height: h, Reason: "singular corner correspondence"}
	}

	if gray, ok := img.(*image.Gray); ok {
		return warpGray(gray, H, w, h), nil
	}
	return warpNRGBA(dimaging.Clone(img), H, w, h), nil
}

// collapsedCorner reports whether any corner of q has collinear edges.
func collapsedCorner(q Quad) bool {
	for i := 0; i < 4; i++ {
		prev, cur, next := q[(i+3)%4], q[i], q[(i+1)%4]
		e1 := cur.Sub(prev)
		e2 := next.Sub(cur)
		cross := e1.X*e2.Y - e1.Y*e2.X
		if math.Abs(cross) <= 1e-9*math.Hypot(e1.X, e1.Y)*math.Hypot(e2.X, e2.Y) {
			return true
		}
	}
	return false
}

func warpGray(src *image.Gray, H Homography, w, h int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := 0; x < w; x++ {
			sx, sy := H.Apply(float64(x), float64(y))
			x0, y0, x1, y1, fx, fy := sampleGrid(sx, sy, sw, sh)
			p00 := float64(src.Pix[y0*src.Stride+x0])
			p10 := float64(src.Pix[y0*src.Stride+x1])
			p01 := float64(src.Pix[y1*src.Stride+x0])
			p11 := float64(src.Pix[y1*src.Stride+x1])
			row[x] = uint8(lerp(lerp(p00, p10, fx), lerp(p01, p11, fx), fy) + 0.5)
		}
	}
	return out
}

func warpNRGBA(src *image.NRGBA, H Homography, w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := H.Apply(float64(x), float64(y))
			x0, y0, x1, y1, fx, fy := sampleGrid(sx, sy, sw, sh)
			i00 := y0*src.Stride + x0*4
			i10 := y0*src.Stride + x1*4
			i01 := y1*src.Stride + x0*4
			i11 := y1*src.Stride + x1*4
			o := y*out.Stride + x*4
			for c := 0; c < 4; c++ {
				v := lerp(
					lerp(float64(src.Pix[i00+c]), float64(src.Pix[i10+c]), fx),
					lerp(float64(src.Pix[i01+c]), float64(src.Pix[i11+c]), fx),
					fy)
				out.Pix[o+c] = uint8(v + 0.5)
			}
		}
	}
	return out
}

// sampleGrid returns the four neighbouring pixel indices of (x, y) and the
// interpolation weights, replicating the border for points outside the
// image. Coordinates are relative to the image origin.
func sampleGrid(x, y float64, w, h int) (x0, y0, x1, y1 int, fx, fy float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, 0, 0, 0, 0
	}
	x = math.Max(0, math.Min(x, float64(w-1)))
	y = math.Max(0, math.Min(y, float64(h-1)))
	x0 = int(x)
	y0 = int(y)
	x1 = min(x0+1, w-1)
	y1 = min(y0+1, h-1)
	return x0, y0, x1, y1, x - float64(x0), y - float64(y0)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
