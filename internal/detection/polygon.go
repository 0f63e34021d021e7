package detection

import (
	"math"

	"github.com/ironsheep/docscan/internal/geometry"
)

// ApproxPolygon simplifies a closed contour with the Douglas-Peucker
// algorithm and returns the indices of the kept points in contour order.
//
// A closed curve has no natural endpoints, so the curve is first split at
// two extreme points: the point farthest from pts[0], and the point
// farthest from that one. Each half is simplified independently. Both split
// points are always kept.
func ApproxPolygon(pts []geometry.Point, epsilon float64) []int {
	n := len(pts)
	if n < 3 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	a := farthestFrom(pts, pts[0])
	b := farthestFrom(pts, pts[a])
	if a == b {
		return []int{a}
	}

	first := simplifyChain(pts, a, b, epsilon)
	second := simplifyChain(pts, b, a, epsilon)

	out := make([]int, 0, len(first)+len(second))
	out = append(out, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return out
}

// simplifyChain runs Douglas-Peucker on the chain from index from to index
// to, walking forward and wrapping around the closed contour. The result
// includes both ends.
func simplifyChain(pts []geometry.Point, from, to int, epsilon float64) []int {
	n := len(pts)
	length := (to - from + n) % n
	chain := make([]int, length+1)
	for i := range chain {
		chain[i] = (from + i) % n
	}

	keep := make([]bool, len(chain))
	keep[0] = true
	keep[len(chain)-1] = true

	type span struct{ lo, hi int }
	stack := []span{{0, len(chain) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}

		p0, p1 := pts[chain[s.lo]], pts[chain[s.hi]]
		maxDist, maxIdx := -1.0, -1
		for i := s.lo + 1; i < s.hi; i++ {
			if d := lineDistance(pts[chain[i]], p0, p1); d > maxDist {
				maxDist = d
				maxIdx = i
			}
		}
		if maxDist > epsilon {
			keep[maxIdx] = true
			stack = append(stack, span{s.lo, maxIdx}, span{maxIdx, s.hi})
		}
	}

	out := make([]int, 0, 8)
	for i, k := range keep {
		if k {
			out = append(out, chain[i])
		}
	}
	return out
}

// lineDistance returns the perpendicular distance from p to the line
// through a and b, or the distance to a when a and b coincide.
func lineDistance(p, a, b geometry.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return p.Dist(a)
	}
	return math.Abs(dy*(p.X-a.X)-dx*(p.Y-a.Y)) / l
}

func farthestFrom(pts []geometry.Point, ref geometry.Point) int {
	best, bestD := 0, -1.0
	for i, p := range pts {
		dx, dy := p.X-ref.X, p.Y-ref.Y
		if d := dx*dx + dy*dy; d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// boundingBox returns the pixel bounding box of pts, counting both end
// pixels: width is maxX-minX+1.
func boundingBox(pts []geometry.Point) (w, h float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return maxX - minX + 1, maxY - minY + 1
}

// line is a point and unit direction.
type line struct {
	c, d geometry.Point
}

// fitLine returns the total least squares line through pts.
func fitLine(pts []geometry.Point) (line, bool) {
	if len(pts) < 2 {
		return line{}, false
	}
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(pts))
	cx /= n
	cy /= n

	var sxx, syy, sxy float64
	for _, p := range pts {
		dx, dy := p.X-cx, p.Y-cy
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx+syy == 0 {
		return line{}, false
	}
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	return line{
		c: geometry.Point{X: cx, Y: cy},
		d: geometry.Point{X: math.Cos(theta), Y: math.Sin(theta)},
	}, true
}

// intersect returns the crossing point of two lines.
func intersect(l1, l2 line) (geometry.Point, bool) {
	det := l1.d.X*l2.d.Y - l1.d.Y*l2.d.X
	if math.Abs(det) < 1e-6 {
		return geometry.Point{}, false
	}
	dx, dy := l2.c.X-l1.c.X, l2.c.Y-l1.c.Y
	t := (dx*l2.d.Y - dy*l2.d.X) / det
	return geometry.Point{X: l1.c.X + t*l1.d.X, Y: l1.c.Y + t*l1.d.Y}, true
}

// sideTrim is the fraction of each side's contour points ignored near
// either corner when refitting the side.
const sideTrim = 0.15

// refineCorners refits each side of a quadrilateral to the contour points
// between its vertices and moves every vertex to the intersection of its
// two sides. Corners that cannot be refined, or that would move further
// than maxShift, keep their raw position.
func refineCorners(pts []geometry.Point, vertices []int, maxShift float64) [4]geometry.Point {
	n := len(pts)
	var raw [4]geometry.Point
	for i, v := range vertices {
		raw[i] = pts[v]
	}

	var sides [4]line
	var ok [4]bool
	for k := 0; k < 4; k++ {
		from, to := vertices[k], vertices[(k+1)%4]
		length := (to - from + n) % n
		trim := int(float64(length) * sideTrim)
		seg := make([]geometry.Point, 0, length)
		for i := trim; i <= length-trim; i++ {
			seg = append(seg, pts[(from+i)%n])
		}
		sides[k], ok[k] = fitLine(seg)
	}

	out := raw
	for k := 0; k < 4; k++ {
		prev := (k + 3) % 4
		if !ok[k] || !ok[prev] {
			continue
		}
		p, found := intersect(sides[prev], sides[k])
		if !found || p.Dist(raw[k]) > maxShift {
			continue
		}
		out[k] = p
	}
	return out
}
