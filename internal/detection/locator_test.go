package detection

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
)

const background = 30

// createPageImage creates a dark image with a white convex polygon whose
// vertices are given clockwise. A pixel is white when its centre lies
// inside the polygon.
func createPageImage(width, height int, poly ...geometry.Point) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(background)
			if insideConvex(poly, float64(x)+0.5, float64(y)+0.5) {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func insideConvex(poly []geometry.Point, px, py float64) bool {
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		if (b.X-a.X)*(py-a.Y)-(b.Y-a.Y)*(px-a.X) < 0 {
			return false
		}
	}
	return true
}

// createDiskImage creates a dark image with a white disk.
func createDiskImage(width, height int, cx, cy, r float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(background)
			if math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) <= r {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func rect(x0, y0, x1, y1 float64) []geometry.Point {
	return []geometry.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

var trapezoid = []geometry.Point{{X: 200, Y: 150}, {X: 600, Y: 150}, {X: 590, Y: 650}, {X: 210, Y: 650}}

func assertCorners(t *testing.T, q geometry.Quad, want []geometry.Point, tol float64) {
	t.Helper()
	ordered := geometry.OrderPoints(q)
	for i := range want {
		if d := ordered[i].Dist(want[i]); d > tol {
			t.Errorf("corner %d: got %v, want %v (off by %.2f)", i, ordered[i], want[i], d)
		}
	}
}

func TestLocate_Trapezoid(t *testing.T) {
	img := createPageImage(800, 800, trapezoid...)

	q, err := NewLocator(DefaultConfig()).Locate(img)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if q == nil {
		t.Fatal("expected a quad, got nil")
	}
	assertCorners(t, *q, trapezoid, 3)
}

func TestLocate_WithoutRefinement(t *testing.T) {
	img := createPageImage(800, 800, trapezoid...)
	cfg := DefaultConfig()
	cfg.RefineCorners = false

	q, err := NewLocator(cfg).Locate(img)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if q == nil {
		t.Fatal("expected a quad, got nil")
	}
	assertCorners(t, *q, trapezoid, 6)
}

func TestLocate_OffsetBounds(t *testing.T) {
	shifted := make([]geometry.Point, len(trapezoid))
	for i, p := range trapezoid {
		shifted[i] = geometry.Point{X: p.X + 50, Y: p.Y + 50}
	}
	full := createPageImage(900, 900, shifted...)
	sub := full.SubImage(image.Rect(50, 50, 850, 850))

	q, err := NewLocator(DefaultConfig()).Locate(sub)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if q == nil {
		t.Fatal("expected a quad, got nil")
	}
	assertCorners(t, *q, shifted, 3)
}

func TestLocate_NoDocument(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"uniform", createPageImage(400, 400)},
		{"disk", createDiskImage(800, 800, 400, 400, 250)},
		{"fills frame", createPageImage(800, 800, rect(20, 20, 780, 780)...)},
		{"tiny square", createPageImage(800, 800, rect(350, 350, 450, 450)...)},
		{"wide strip", createPageImage(1000, 400, rect(50, 140, 950, 260)...)},
	}

	loc := NewLocator(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := loc.Locate(tt.img)
			if err != nil {
				t.Fatalf("Locate failed: %v", err)
			}
			if q != nil {
				t.Errorf("expected nil, got %v", *q)
			}
		})
	}
}

func TestLocate_EmptyImage(t *testing.T) {
	_, err := NewLocator(DefaultConfig()).Locate(image.NewGray(image.Rect(0, 0, 0, 0)))
	if !errors.Is(err, imaging.ErrEmptyImage) {
		t.Errorf("got %v, want ErrEmptyImage", err)
	}
}

func TestCandidates_Rejections(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want Rejection
	}{
		{"page", createPageImage(800, 800, trapezoid...), Accepted},
		{"disk", createDiskImage(800, 800, 400, 400, 250), NotQuadrilateral},
		{"fills frame", createPageImage(800, 800, rect(20, 20, 780, 780)...), AreaTooLarge},
		{"tiny square", createPageImage(800, 800, rect(350, 350, 450, 450)...), AreaTooSmall},
		{"wide strip", createPageImage(1000, 400, rect(50, 140, 950, 260)...), BadAspect},
	}

	loc := NewLocator(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands, err := loc.Candidates(tt.img)
			if err != nil {
				t.Fatalf("Candidates failed: %v", err)
			}
			if len(cands) == 0 {
				t.Fatal("expected at least one candidate")
			}
			if cands[0].Rejection != tt.want {
				t.Errorf("rejection: got %q, want %q", cands[0].Rejection, tt.want)
			}
			if cands[0].Rank != 0 {
				t.Errorf("rank: got %d, want 0", cands[0].Rank)
			}
		})
	}
}

func TestCandidates_RankedByArea(t *testing.T) {
	// two separate pages; the larger one is ranked first
	img := image.NewGray(image.Rect(0, 0, 800, 400))
	big := createPageImage(800, 400, rect(40, 40, 360, 360)...)
	small := createPageImage(800, 400, rect(480, 100, 680, 300)...)
	for i := range img.Pix {
		img.Pix[i] = max(big.Pix[i], small.Pix[i])
	}

	cands, err := NewLocator(DefaultConfig()).Candidates(img)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(cands) < 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].Area <= cands[1].Area {
		t.Errorf("not ranked by area: %v then %v", cands[0].Area, cands[1].Area)
	}
	for i := 1; i < len(cands); i++ {
		if cands[i].Area > cands[i-1].Area {
			t.Errorf("candidate %d larger than %d", i, i-1)
		}
	}
}

func TestEdgeMap(t *testing.T) {
	img := createPageImage(200, 200, rect(50, 50, 150, 150)...)

	edges, err := NewLocator(DefaultConfig()).EdgeMap(img)
	if err != nil {
		t.Fatalf("EdgeMap failed: %v", err)
	}
	if edges.Bounds() != image.Rect(0, 0, 200, 200) {
		t.Errorf("bounds: got %v", edges.Bounds())
	}
	if edges.GrayAt(100, 50).Y != 255 && edges.GrayAt(100, 49).Y != 255 {
		t.Error("expected an edge on the top side")
	}
	if edges.GrayAt(100, 100).Y != 0 {
		t.Error("expected no edge inside the page")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative low", func(c *Config) { c.CannyLow = -1 }},
		{"high below low", func(c *Config) { c.CannyHigh = 10; c.CannyLow = 20 }},
		{"zero epsilon", func(c *Config) { c.ApproxEpsilon = 0 }},
		{"area bounds swapped", func(c *Config) { c.MinAreaRatio = 0.8 }},
		{"area above one", func(c *Config) { c.MaxAreaRatio = 1.5 }},
		{"aspect bounds swapped", func(c *Config) { c.MinAspect = 3 }},
		{"zero aspect", func(c *Config) { c.MinAspect = 0 }},
		{"negative component size", func(c *Config) { c.MinComponentPixels = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
