package geometry

import "math"

// Homography is a 3x3 projective transform stored row-major.
type Homography [9]float64

// pivotEpsilon is the smallest pivot accepted before a system is treated
// as singular.
const pivotEpsilon = 1e-10

// ComputeHomography solves the transform mapping src[i] to dst[i] for the
// four correspondences, with H[8] fixed at 1. It reports false when the
// correspondences are degenerate (three collinear points, repeated points).
func ComputeHomography(src, dst [4]Point) (Homography, bool) {
	var a [8][8]float64
	var b [8]float64
	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		// x = (h0 X + h1 Y + h2) / (h6 X + h7 Y + 1)
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		b[r] = x

		// y = (h3 X + h4 Y + h5) / (h6 X + h7 Y + 1)
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		b[r+1] = y
	}

	h, ok := solve8x8(a, b)
	if !ok {
		return Homography{}, false
	}
	return Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, true
}

// Apply maps (x, y) through the transform. Points on the line at infinity
// map to NaN.
func (h Homography) Apply(x, y float64) (float64, float64) {
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		return math.NaN(), math.NaN()
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
}

// ApplyPoint is Apply for a Point.
func (h Homography) ApplyPoint(p Point) Point {
	x, y := h.Apply(p.X, p.Y)
	return Point{X: x, Y: y}
}

// Invert returns the inverse transform, normalized so the last element is 1.
func (h Homography) Invert() (Homography, bool) {
	a, b, c := h[0], h[1], h[2]
	d, e, f := h[3], h[4], h[5]
	g, k, l := h[6], h[7], h[8]

	det := a*(e*l-f*k) - b*(d*l-f*g) + c*(d*k-e*g)
	if math.Abs(det) < pivotEpsilon {
		return Homography{}, false
	}

	inv := Homography{
		e*l - f*k, c*k - b*l, b*f - c*e,
		f*g - d*l, a*l - c*g, c*d - a*f,
		d*k - e*g, b*g - a*k, a*e - b*d,
	}
	if inv[8] == 0 {
		return Homography{}, false
	}
	s := inv[8]
	for i := range inv {
		inv[i] /= s
	}
	return inv, true
}

// solve8x8 runs Gauss-Jordan elimination with partial pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	for col := 0; col < 8; col++ {
		pivot := col
		maxAbs := math.Abs(a[col][col])
		for r := col + 1; r < 8; r++ {
			if v := math.Abs(a[r][col]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if maxAbs < pivotEpsilon {
			return [8]float64{}, false
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			factor := a[r][col]
			if factor == 0 {
				continue
			}
			for c := col; c < 8; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}
	return b, true
}
