package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// OtsuThreshold returns the global threshold t that maximizes the
// between-class variance of the pixels <= t and the pixels > t.
//
// The first maximum wins, so for a two-valued image t is the lower value.
// An image with a single intensity has no split and yields 0.
func OtsuThreshold(src image.Image) uint8 {
	// Normalized 256-bin luminance histogram.
	hist := imaging.Histogram(src)

	var meanAll float64
	for i, p := range hist {
		meanAll += float64(i) * p
	}

	var (
		best    float64
		bestT   int
		w0, sum float64
	)
	for t := 0; t < 255; t++ {
		w0 += hist[t]
		sum += float64(t) * hist[t]
		w1 := 1 - w0
		if w0 <= 0 || w1 <= 1e-12 {
			continue
		}
		mu0 := sum / w0
		mu1 := (meanAll - sum) / w1
		between := w0 * w1 * (mu0 - mu1) * (mu0 - mu1)
		if between > best {
			best = between
			bestT = t
		}
	}
	return uint8(bestT)
}

// Binarize maps pixels brighter than t to 255 and the rest to 0.
func Binarize(src *image.Gray, t uint8) *image.Gray {
	adjusted := imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		if c.R > t {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{A: 255}
	})
	return fromNRGBA(adjusted)
}

// fromNRGBA copies the red channel of an opaque NRGBA image into a gray
// image. It is exact for images whose channels are equal.
func fromNRGBA(src *image.NRGBA) *image.Gray {
	out := newGrayLike(src)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 0; y < h; y++ {
		s := src.Pix[y*src.Stride:]
		o := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			o[x] = s[x*4]
		}
	}
	return out
}

// IsBinary reports whether every pixel is 0 or 255.
func IsBinary(img *image.Gray) bool {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for _, v := range row {
			if v != 0 && v != 255 {
				return false
			}
		}
	}
	return true
}
