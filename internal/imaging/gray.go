package imaging

import (
	"errors"
	"image"
	"image/draw"
)

// ErrEmptyImage is returned for images with zero width or height.
var ErrEmptyImage = errors.New("empty image")

// ToGray converts img to an 8-bit luminance image with bounds starting at
// (0,0). Gray input is copied.
func ToGray(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	// color.GrayModel applies the BT.601 weights with rounding.
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}

// GaussianBlur applies a 5x5 Gaussian blur (sigma about 1.4) and returns
// the result as floats on the 0-255 scale.
//
// The kernel is the usual integer approximation, normalized by its sum of
// 273:
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// Border pixels use clamped (replicated) edge values.
func GaussianBlur(src *image.Gray) []float64 {
	kernel := [5][5]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	const kernelSum = 273.0

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				py := clamp(y+ky, 0, h-1)
				row := src.Pix[py*src.Stride:]
				for kx := -2; kx <= 2; kx++ {
					px := clamp(x+kx, 0, w-1)
					sum += float64(row[px]) * kernel[ky+2][kx+2]
				}
			}
			out[y*w+x] = sum / kernelSum
		}
	}
	return out
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// newGrayLike allocates a zeroed gray image the size of src.
func newGrayLike(src image.Image) *image.Gray {
	b := src.Bounds()
	return image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
}
