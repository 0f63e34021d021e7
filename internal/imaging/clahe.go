package imaging

import (
	"image"
	"math"
)

// CLAHEOptions configures contrast-limited adaptive histogram equalization.
type CLAHEOptions struct {
	// ClipLimit bounds each histogram bin at ClipLimit times the mean bin
	// height. Values <= 0 disable clipping (plain adaptive equalization).
	ClipLimit float64

	// TilesX and TilesY set the tile grid. Both default to 8.
	TilesX int
	TilesY int
}

// DefaultCLAHEOptions returns clip limit 3.0 on an 8x8 grid.
func DefaultCLAHEOptions() CLAHEOptions {
	return CLAHEOptions{ClipLimit: 3.0, TilesX: 8, TilesY: 8}
}

// CLAHE equalizes src tile by tile with a clipped histogram, then blends the
// per-tile mappings bilinearly so tile borders do not show.
//
// For each tile the 256-bin histogram is clipped at
// max(1, ClipLimit*tileArea/256); the clipped excess is spread evenly over
// all bins and any remainder is added one count at a time at a regular
// stride. The tile's lookup table is its scaled cumulative histogram. Each
// pixel's output interpolates the lookup tables of the four tiles whose
// centres surround it.
//
// The tile grid shrinks for images smaller than the grid so every tile holds
// at least one pixel.
func CLAHE(src *image.Gray, opts CLAHEOptions) (*image.Gray, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	tx := opts.TilesX
	if tx <= 0 {
		tx = 8
	}
	ty := opts.TilesY
	if ty <= 0 {
		ty = 8
	}
	tx = min(tx, w)
	ty = min(ty, h)

	tileW := float64(w) / float64(tx)
	tileH := float64(h) / float64(ty)

	luts := make([][256]uint8, tx*ty)
	for j := 0; j < ty; j++ {
		y0, y1 := int(float64(j)*tileH), int(float64(j+1)*tileH)
		if j == ty-1 {
			y1 = h
		}
		for i := 0; i < tx; i++ {
			x0, x1 := int(float64(i)*tileW), int(float64(i+1)*tileW)
			if i == tx-1 {
				x1 = w
			}
			luts[j*tx+i] = tileLUT(src, x0, y0, x1, y1, opts.ClipLimit)
		}
	}

	out := newGrayLike(src)
	for y := 0; y < h; y++ {
		ty0, ty1, fy := tileNeighbours(y, tileH, ty)
		srow := src.Pix[y*src.Stride:]
		orow := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			tx0, tx1, fx := tileNeighbours(x, tileW, tx)
			v := srow[x]
			top := (1-fx)*float64(luts[ty0*tx+tx0][v]) + fx*float64(luts[ty0*tx+tx1][v])
			bot := (1-fx)*float64(luts[ty1*tx+tx0][v]) + fx*float64(luts[ty1*tx+tx1][v])
			orow[x] = uint8(math.Round((1-fy)*top + fy*bot))
		}
	}
	return out, nil
}

// tileNeighbours returns the two tile indices whose centres bracket pixel
// coordinate p and the weight of the second.
func tileNeighbours(p int, tileSize float64, tiles int) (int, int, float64) {
	f := (float64(p)+0.5)/tileSize - 0.5
	if f <= 0 {
		return 0, 0, 0
	}
	if f >= float64(tiles-1) {
		return tiles - 1, tiles - 1, 0
	}
	i := int(f)
	return i, i + 1, f - float64(i)
}

func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride:]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	if clipLimit > 0 {
		clip := max(int(clipLimit*float64(area)/256), 1)
		excess := 0
		for i := range hist {
			if hist[i] > clip {
				excess += hist[i] - clip
				hist[i] = clip
			}
		}

		batch := excess / 256
		residual := excess - batch*256
		for i := range hist {
			hist[i] += batch
		}
		if residual > 0 {
			step := max(256/residual, 1)
			for i := 0; i < 256 && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	var lut [256]uint8
	scale := 255.0 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(math.Min(255, math.Round(float64(sum)*scale)))
	}
	return lut
}
