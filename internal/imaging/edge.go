package imaging

import (
	"image"
	"math"
)

// Canny performs Canny edge detection on a grayscale image.
//
// The result is a binary image of the same size where 255 marks an edge
// pixel and 0 a non-edge.
//
// Parameters:
//   - src: Grayscale source image.
//   - low: Hysteresis low threshold on the Sobel gradient magnitude.
//   - high: Hysteresis high threshold on the Sobel gradient magnitude.
//
// # Algorithm
//
//  1. Gaussian blur: 5x5 kernel to reduce noise (see GaussianBlur)
//
//  2. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  3. Non-maximum suppression: Thin edges by keeping only local maxima in
//     the gradient direction. Border pixels are never edges.
//
//  4. Hysteresis thresholding:
//     - Pixels at or above high are strong edges (always kept)
//     - Pixels between low and high are weak edges, kept when they are
//     8-connected to a strong edge through other kept pixels
//     - Pixels below low are discarded
//
// # Threshold Scale
//
// Magnitudes are those of the unnormalized 3x3 Sobel kernels applied to
// 0-255 intensities, so a clean black/white step peaks near 1000. The
// document locator uses low=75, high=200.
func Canny(src *image.Gray, low, high float64) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := newGrayLike(src)
	if w < 3 || h < 3 {
		return out
	}

	blurred := GaussianBlur(src)
	magnitude, direction := sobel(blurred, w, h)
	suppressed := nonMaxSuppress(magnitude, direction, w, h)
	hysteresis(suppressed, w, h, low, high, out)
	return out
}

// sobel returns per-pixel gradient magnitude and direction.
func sobel(img []float64, w, h int) ([]float64, []float64) {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([]float64, w*h)
	direction := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				py := clamp(y+ky, 0, h-1)
				for kx := -1; kx <= 1; kx++ {
					px := clamp(x+kx, 0, w-1)
					v := img[py*w+px]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y*w+x] = math.Sqrt(gx*gx + gy*gy)
			direction[y*w+x] = math.Atan2(gy, gx)
		}
	}
	return magnitude, direction
}

func nonMaxSuppress(magnitude, direction []float64, w, h int) []float64 {
	suppressed := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			angle := direction[i]
			mag := magnitude[i]
			if mag == 0 {
				continue
			}

			// Neighbours along the gradient direction
			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[i-w-1]
				n2 = magnitude[i+w+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[i-w]
				n2 = magnitude[i+w]
			default:
				n1 = magnitude[i-w+1]
				n2 = magnitude[i+w-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}
	return suppressed
}

// hysteresis marks strong pixels and grows them through weak pixels with a
// breadth-first walk over 8-connected neighbours.
func hysteresis(suppressed []float64, w, h int, low, high float64, out *image.Gray) {
	queue := make([]int, 0, 1024)
	for i, v := range suppressed {
		if v >= high {
			out.Pix[(i/w)*out.Stride+i%w] = 255
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				o := ny*out.Stride + nx
				if out.Pix[o] != 0 || suppressed[j] < low {
					continue
				}
				out.Pix[o] = 255
				queue = append(queue, j)
			}
		}
	}
}
