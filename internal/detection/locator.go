package detection

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
)

// Config holds the tuned constants of the document locator.
type Config struct {
	// CannyLow and CannyHigh are the hysteresis thresholds on the Sobel
	// gradient magnitude.
	CannyLow  float64 `mapstructure:"canny_low" yaml:"canny_low" json:"canny_low"`
	CannyHigh float64 `mapstructure:"canny_high" yaml:"canny_high" json:"canny_high"`

	// ApproxEpsilon is the Douglas-Peucker tolerance as a fraction of the
	// contour perimeter.
	ApproxEpsilon float64 `mapstructure:"approx_epsilon" yaml:"approx_epsilon" json:"approx_epsilon"`

	// MinAreaRatio and MaxAreaRatio bound the polygon area as a fraction of
	// the image area (both exclusive).
	MinAreaRatio float64 `mapstructure:"min_area_ratio" yaml:"min_area_ratio" json:"min_area_ratio"`
	MaxAreaRatio float64 `mapstructure:"max_area_ratio" yaml:"max_area_ratio" json:"max_area_ratio"`

	// MinAspect and MaxAspect bound the bounding-box width/height ratio
	// (both exclusive).
	MinAspect float64 `mapstructure:"min_aspect" yaml:"min_aspect" json:"min_aspect"`
	MaxAspect float64 `mapstructure:"max_aspect" yaml:"max_aspect" json:"max_aspect"`

	// MinComponentPixels drops edge components smaller than this.
	MinComponentPixels int `mapstructure:"min_component_pixels" yaml:"min_component_pixels" json:"min_component_pixels"`

	// RefineCorners refits each side of the accepted polygon by least
	// squares and uses the side intersections as corners.
	RefineCorners bool `mapstructure:"refine_corners" yaml:"refine_corners" json:"refine_corners"`
}

// DefaultConfig returns the standard locator settings.
func DefaultConfig() Config {
	return Config{
		CannyLow:           75,
		CannyHigh:          200,
		ApproxEpsilon:      0.02,
		MinAreaRatio:       0.2,
		MaxAreaRatio:       0.7,
		MinAspect:          0.5,
		MaxAspect:          2.0,
		MinComponentPixels: 10,
		RefineCorners:      true,
	}
}

// Validate checks that the thresholds are usable.
func (c Config) Validate() error {
	if c.CannyLow < 0 || c.CannyHigh < c.CannyLow {
		return fmt.Errorf("canny thresholds must satisfy 0 <= low <= high, got %v/%v", c.CannyLow, c.CannyHigh)
	}
	if c.ApproxEpsilon <= 0 || c.ApproxEpsilon >= 1 {
		return fmt.Errorf("approx_epsilon must be in (0, 1), got %v", c.ApproxEpsilon)
	}
	if c.MinAreaRatio < 0 || c.MaxAreaRatio > 1 || c.MinAreaRatio >= c.MaxAreaRatio {
		return fmt.Errorf("area ratio bounds must satisfy 0 <= min < max <= 1, got %v/%v", c.MinAreaRatio, c.MaxAreaRatio)
	}
	if c.MinAspect <= 0 || c.MinAspect >= c.MaxAspect {
		return fmt.Errorf("aspect bounds must satisfy 0 < min < max, got %v/%v", c.MinAspect, c.MaxAspect)
	}
	if c.MinComponentPixels < 0 {
		return fmt.Errorf("min_component_pixels must be non-negative, got %d", c.MinComponentPixels)
	}
	return nil
}

// Rejection says why a contour was not accepted as the document.
type Rejection string

// Rejection reasons, in the order the checks run.
const (
	Accepted         Rejection = ""
	NotQuadrilateral Rejection = "vertex count"
	AreaTooSmall     Rejection = "area too small"
	AreaTooLarge     Rejection = "area too large"
	BadAspect        Rejection = "aspect ratio"
)

// Candidate is one ranked contour and the verdict on it.
type Candidate struct {
	Rank      int              `json:"rank"`
	Area      float64          `json:"contour_area"`
	Polygon   []geometry.Point `json:"polygon"`
	AreaRatio float64          `json:"area_ratio"`
	Aspect    float64          `json:"aspect"`
	Rejection Rejection        `json:"rejection,omitempty"`

	contour  Contour
	vertices []int
}

// Locator finds the dominant quadrilateral in a photo.
type Locator struct {
	cfg Config
}

// NewLocator returns a Locator using cfg.
func NewLocator(cfg Config) *Locator {
	return &Locator{cfg: cfg}
}

// Config returns the locator settings.
func (l *Locator) Config() Config {
	return l.cfg
}

// Locate returns the four corners of the document in img, in contour order
// (not canonical order), or nil when no contour qualifies. Not finding a
// document is not an error.
//
// Contours are ranked by enclosed area, largest first, and the first one
// whose simplified polygon has exactly four vertices, a plausible area
// ratio and a plausible aspect ratio wins.
//
// Returns imaging.ErrEmptyImage for a zero-size image.
func (l *Locator) Locate(img image.Image) (*geometry.Quad, error) {
	ranked, err := l.rankedContours(img)
	if err != nil {
		return nil, err
	}
	imgArea := float64(img.Bounds().Dx() * img.Bounds().Dy())

	for i, c := range ranked {
		cand := l.evaluate(i, c, imgArea)
		if cand.Rejection != Accepted {
			continue
		}
		q := l.corners(cand, img.Bounds().Min)
		return &q, nil
	}
	return nil, nil
}

// Candidates evaluates every contour without stopping at the first match.
// It is meant for debugging the thresholds.
func (l *Locator) Candidates(img image.Image) ([]Candidate, error) {
	ranked, err := l.rankedContours(img)
	if err != nil {
		return nil, err
	}
	imgArea := float64(img.Bounds().Dx() * img.Bounds().Dy())

	out := make([]Candidate, len(ranked))
	for i, c := range ranked {
		out[i] = l.evaluate(i, c, imgArea)
	}
	return out, nil
}

// EdgeMap returns the Canny edge map the locator works on.
func (l *Locator) EdgeMap(img image.Image) (*image.Gray, error) {
	gray, err := imaging.ToGray(img)
	if err != nil {
		return nil, err
	}
	return imaging.Canny(gray, l.cfg.CannyLow, l.cfg.CannyHigh), nil
}

func (l *Locator) rankedContours(img image.Image) ([]Contour, error) {
	edges, err := l.EdgeMap(img)
	if err != nil {
		return nil, err
	}
	contours := FindContours(edges, l.cfg.MinComponentPixels)
	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].Area > contours[j].Area
	})
	return contours, nil
}

func (l *Locator) evaluate(rank int, c Contour, imgArea float64) Candidate {
	eps := l.cfg.ApproxEpsilon * c.Perimeter()
	vertices := ApproxPolygon(c.Points, eps)

	poly := make([]geometry.Point, len(vertices))
	for i, v := range vertices {
		poly[i] = c.Points[v]
	}

	cand := Candidate{
		Rank:     rank,
		Area:     c.Area,
		Polygon:  poly,
		contour:  c,
		vertices: vertices,
	}

	if len(poly) != 4 {
		cand.Rejection = NotQuadrilateral
		return cand
	}

	cand.AreaRatio = math.Abs(geometry.ShoelaceArea(poly)) / imgArea
	w, h := boundingBox(poly)
	cand.Aspect = w / h

	switch {
	case cand.AreaRatio <= l.cfg.MinAreaRatio:
		cand.Rejection = AreaTooSmall
	case cand.AreaRatio >= l.cfg.MaxAreaRatio:
		cand.Rejection = AreaTooLarge
	case cand.Aspect <= l.cfg.MinAspect || cand.Aspect >= l.cfg.MaxAspect:
		cand.Rejection = BadAspect
	}
	return cand
}

// corners returns the accepted polygon's corners in image coordinates.
func (l *Locator) corners(cand Candidate, origin image.Point) geometry.Quad {
	var q geometry.Quad
	if l.cfg.RefineCorners {
		maxShift := 0.05 * closedLength(cand.Polygon)
		q = refineCorners(cand.contour.Points, cand.vertices, maxShift)
	} else {
		copy(q[:], cand.Polygon)
	}
	for i := range q {
		q[i].X += float64(origin.X)
		q[i].Y += float64(origin.Y)
	}
	return q
}
