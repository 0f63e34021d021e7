package geometry

import (
	"fmt"
	"math"
	"sort"
)

// Point is a 2D position in image coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y)
}

// Quad is a quadrilateral in canonical order: TL, TR, BR, BL.
type Quad [4]Point

// Corner indices into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// TL returns the top-left corner.
func (q Quad) TL() Point { return q[TopLeft] }

// TR returns the top-right corner.
func (q Quad) TR() Point { return q[TopRight] }

// BR returns the bottom-right corner.
func (q Quad) BR() Point { return q[BottomRight] }

// BL returns the bottom-left corner.
func (q Quad) BL() Point { return q[BottomLeft] }

// Area returns the absolute shoelace area of the quad.
func (q Quad) Area() float64 {
	return math.Abs(ShoelaceArea(q[:]))
}

// Points returns the corners as a slice.
func (q Quad) Points() []Point {
	return []Point{q[0], q[1], q[2], q[3]}
}

// ShoelaceArea returns the signed area of a closed polygon. The sign is
// positive for clockwise winding in image coordinates (y down).
func ShoelaceArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// Orderer assigns four unordered points to canonical quad roles.
type Orderer interface {
	Order(pts [4]Point) Quad
}

// OrdererFunc adapts a function to the Orderer interface.
type OrdererFunc func(pts [4]Point) Quad

// Order calls f(pts).
func (f OrdererFunc) Order(pts [4]Point) Quad {
	return f(pts)
}

// SumDiffOrderer is the default Orderer. See OrderPoints.
var SumDiffOrderer Orderer = OrdererFunc(OrderPoints)

// AngleOrderer orders corners by their angle around the centroid, so a
// page rotated by any amount keeps four distinct roles.
var AngleOrderer Orderer = OrdererFunc(OrderByAngle)

// OrdererByName returns the orderer registered under name: "sumdiff" (or
// empty) and "angle".
func OrdererByName(name string) (Orderer, error) {
	switch name {
	case "", "sumdiff":
		return SumDiffOrderer, nil
	case "angle":
		return AngleOrderer, nil
	default:
		return nil, fmt.Errorf("unknown corner orderer %q", name)
	}
}

// OrderPoints assigns corners by coordinate sum and difference: the
// smallest x+y is top-left, the largest x+y bottom-right, the smallest y-x
// top-right and the largest y-x bottom-left. Ties keep the first point in
// input order.
//
// The assignment is not a permutation in general. For a page rotated close
// to 45 degrees one input point can win two roles; use AngleOrderer when
// rotation is unconstrained.
func OrderPoints(pts [4]Point) Quad {
	minSum, maxSum, minDiff, maxDiff := 0, 0, 0, 0
	for i := 1; i < 4; i++ {
		s := pts[i].X + pts[i].Y
		d := pts[i].Y - pts[i].X
		if s < pts[minSum].X+pts[minSum].Y {
			minSum = i
		}
		if s > pts[maxSum].X+pts[maxSum].Y {
			maxSum = i
		}
		if d < pts[minDiff].Y-pts[minDiff].X {
			minDiff = i
		}
		if d > pts[maxDiff].Y-pts[maxDiff].X {
			maxDiff = i
		}
	}
	return Quad{pts[minSum], pts[minDiff], pts[maxSum], pts[maxDiff]}
}

// OrderByAngle sorts the points clockwise (in image coordinates) around
// their centroid and rotates the result so the point with the smallest x+y
// comes first.
func OrderByAngle(pts [4]Point) Quad {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= 4
	cy /= 4

	sorted := pts
	s := sorted[:]
	sort.SliceStable(s, func(i, j int) bool {
		return math.Atan2(s[i].Y-cy, s[i].X-cx) < math.Atan2(s[j].Y-cy, s[j].X-cx)
	})

	start := 0
	for i := 1; i < 4; i++ {
		if s[i].X+s[i].Y < s[start].X+s[start].Y {
			start = i
		}
	}

	var q Quad
	for i := 0; i < 4; i++ {
		q[i] = s[(start+i)%4]
	}
	return q
}
