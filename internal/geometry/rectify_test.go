package geometry

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan/internal/imaging"
)

func TestComputeHomography_RoundTrip(t *testing.T) {
	src := [4]Point{Pt(0, 0), Pt(399, 0), Pt(399, 499), Pt(0, 499)}
	dst := [4]Point{Pt(200, 150), Pt(600, 150), Pt(590, 650), Pt(210, 650)}

	H, ok := ComputeHomography(src, dst)
	require.True(t, ok)
	for i := range src {
		got := H.ApplyPoint(src[i])
		assert.InDelta(t, dst[i].X, got.X, 1e-6)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-6)
	}

	inv, ok := H.Invert()
	require.True(t, ok)
	for i := range dst {
		got := inv.ApplyPoint(dst[i])
		assert.InDelta(t, src[i].X, got.X, 1e-6)
		assert.InDelta(t, src[i].Y, got.Y, 1e-6)
	}
}

func TestComputeHomography_Degenerate(t *testing.T) {
	src := [4]Point{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}
	collinear := [4]Point{Pt(0, 0), Pt(5, 0), Pt(10, 0), Pt(20, 0)}
	_, ok := ComputeHomography(src, collinear)
	assert.False(t, ok)
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name  string
		quad  Quad
		wantW int
		wantH int
	}{
		{"axis aligned", Quad{Pt(0, 0), Pt(100, 0), Pt(100, 50), Pt(0, 50)}, 100, 50},
		{"longer bottom wins", Quad{Pt(10, 0), Pt(90, 0), Pt(100, 50), Pt(0, 50)}, 100, 50},
		{"fractional floors", Quad{Pt(0, 0), Pt(10.9, 0), Pt(10.9, 5.99), Pt(0, 5.99)}, 10, 5},
		{"trapezoid", Quad{Pt(200, 150), Pt(600, 150), Pt(590, 650), Pt(210, 650)}, 400, 500},
		{"point", Quad{Pt(3, 3), Pt(3, 3), Pt(3, 3), Pt(3, 3)}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := OutputSize(tt.quad)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestRectify_Dimensions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	q := Quad{Pt(20, 30), Pt(170, 25), Pt(180, 190), Pt(10, 180)}

	out, err := Rectify(img, q)
	require.NoError(t, err)

	wantW := int(math.Floor(math.Max(q.BR().Dist(q.BL()), q.TR().Dist(q.TL()))))
	wantH := int(math.Floor(math.Max(q.TR().Dist(q.BR()), q.TL().Dist(q.BL()))))
	assert.Equal(t, wantW, out.Bounds().Dx())
	assert.Equal(t, wantH, out.Bounds().Dy())
	assert.IsType(t, &image.Gray{}, out)
}

func TestRectify_ColorInputGivesNRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	out, err := Rectify(img, Quad{Pt(0, 0), Pt(39, 0), Pt(39, 39), Pt(0, 39)})
	require.NoError(t, err)
	assert.IsType(t, &image.NRGBA{}, out)
	assert.Equal(t, image.Rect(0, 0, 39, 39), out.Bounds())
}

func TestRectify_IdentityPreservesPixels(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*3) % 256)})
		}
	}
	// Corners at the pixel centres give a 63x47 output sampling exactly on
	// the grid at (x*63/62, ...); check the corner pixels only.
	q := Quad{Pt(0, 0), Pt(63, 0), Pt(63, 47), Pt(0, 47)}
	out, err := Rectify(img, q)
	require.NoError(t, err)

	g := out.(*image.Gray)
	assert.Equal(t, img.GrayAt(0, 0), g.GrayAt(0, 0))
	assert.Equal(t, img.GrayAt(63, 47), g.GrayAt(62, 46))
}

func TestRectify_WarpsBrightRegion(t *testing.T) {
	// Bright trapezoid on dark ground; rectifying the trapezoid itself must
	// give an (almost) all-bright image.
	img := image.NewGray(image.Rect(0, 0, 300, 300))
	q := Quad{Pt(60, 50), Pt(240, 50), Pt(230, 250), Pt(70, 250)}
	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			if insideConvex(q, float64(x), float64(y)) {
				img.SetGray(x, y, color.Gray{Y: 250})
			} else {
				img.SetGray(x, y, color.Gray{Y: 10})
			}
		}
	}

	out, err := Rectify(img, q)
	require.NoError(t, err)
	g := out.(*image.Gray)
	b := g.Bounds()

	bright := 0
	for y := 2; y < b.Dy()-2; y++ {
		for x := 2; x < b.Dx()-2; x++ {
			if g.GrayAt(x, y).Y > 200 {
				bright++
			}
		}
	}
	total := (b.Dx() - 4) * (b.Dy() - 4)
	assert.Greater(t, float64(bright)/float64(total), 0.99)
}

func TestRectify_OffsetBounds(t *testing.T) {
	base := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range base.Pix {
		base.Pix[i] = 200
	}
	sub := base.SubImage(image.Rect(50, 50, 100, 100)).(*image.Gray)

	out, err := Rectify(sub, Quad{Pt(55, 55), Pt(95, 55), Pt(95, 95), Pt(55, 95)})
	require.NoError(t, err)
	assert.Equal(t, 40, out.Bounds().Dx())
	assert.Equal(t, uint8(200), out.(*image.Gray).GrayAt(20, 20).Y)
}

func TestRectify_InvalidGeometry(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 50, 50))
	tests := []struct {
		name string
		quad Quad
	}{
		{"point", Quad{Pt(5, 5), Pt(5, 5), Pt(5, 5), Pt(5, 5)}},
		{"horizontal line", Quad{Pt(0, 10), Pt(40, 10), Pt(40, 10), Pt(0, 10)}},
		{"vertical line", Quad{Pt(10, 0), Pt(10, 0), Pt(10, 40), Pt(10, 40)}},
		{"sub-pixel", Quad{Pt(1, 1), Pt(1.5, 1), Pt(1.5, 1.5), Pt(1, 1.5)}},
		{"collapsed corner", Quad{Pt(0, 0), Pt(40, 0), Pt(20, 0), Pt(0, 40)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Rectify(img, tt.quad)
			assert.Nil(t, out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGeometry), "got %v", err)

			var ge *GeometryError
			assert.True(t, errors.As(err, &ge))
		})
	}
}

func TestRectify_DoesNotModifyInput(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	before := append([]uint8(nil), img.Pix...)

	_, err := Rectify(img, Quad{Pt(2, 2), Pt(17, 3), Pt(18, 18), Pt(1, 16)})
	require.NoError(t, err)
	assert.Equal(t, before, img.Pix)
}

// insideConvex reports whether (x, y) lies inside the clockwise convex quad.
func insideConvex(q Quad, x, y float64) bool {
	for i := 0; i < 4; i++ {
		a, b := q[i], q[(i+1)%4]
		if (b.X-a.X)*(y-a.Y)-(b.Y-a.Y)*(x-a.X) < 0 {
			return false
		}
	}
	return true
}

func TestRectify_EmptySource(t *testing.T) {
	q := Quad{Pt(0, 0), Pt(40, 0), Pt(40, 30), Pt(0, 30)}

	for name, img := range map[string]image.Image{
		"zero width":  image.NewGray(image.Rect(0, 0, 0, 30)),
		"zero height": image.NewNRGBA(image.Rect(0, 0, 40, 0)),
	} {
		t.Run(name, func(t *testing.T) {
			out, err := Rectify(img, q)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, imaging.ErrEmptyImage)
			assert.False(t, errors.Is(err, ErrInvalidGeometry), "an empty photo is not a geometry failure")
		})
	}
}
