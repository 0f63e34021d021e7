package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// Erode replaces each pixel with the minimum of its disc-shaped
// neighbourhood of the given radius. A radius <= 0 returns a copy.
func Erode(src *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return cloneGray(src)
	}
	return fromRGBA(effect.Erode(src, radius))
}

// Dilate replaces each pixel with the maximum of its disc-shaped
// neighbourhood of the given radius. A radius <= 0 returns a copy.
func Dilate(src *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return cloneGray(src)
	}
	return fromRGBA(effect.Dilate(src, radius))
}

// Opening is erosion followed by dilation. It removes isolated bright specks
// smaller than the structuring element.
func Opening(src *image.Gray, radius float64) *image.Gray {
	return Dilate(Erode(src, radius), radius)
}

// Closing is dilation followed by erosion. It fills dark pinholes and gaps
// smaller than the structuring element.
func Closing(src *image.Gray, radius float64) *image.Gray {
	return Erode(Dilate(src, radius), radius)
}

func fromRGBA(src *image.RGBA) *image.Gray {
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

func cloneGray(src *image.Gray) *image.Gray {
	out := newGrayLike(src)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
	return out
}
