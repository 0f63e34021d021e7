package detection

import (
	"image"
	"math"

	"github.com/ironsheep/docscan/internal/geometry"
)

// Contour is the traced outer boundary of one connected group of edge
// pixels.
type Contour struct {
	// Points is the closed boundary in tracing order (clockwise in image
	// coordinates). The closing point is not repeated.
	Points []geometry.Point

	// Area is the absolute shoelace area enclosed by Points.
	Area float64

	// Pixels is the number of edge pixels in the component.
	Pixels int
}

// Perimeter returns the closed length of the contour.
func (c Contour) Perimeter() float64 {
	return closedLength(c.Points)
}

// FindContours groups the non-zero pixels of a binary edge map into
// 8-connected components and traces the outer boundary of each one.
//
// Components smaller than minPixels are discarded as noise. The returned
// list is flat (no nesting) and in discovery order: row-major by each
// component's top-left pixel.
func FindContours(edges *image.Gray, minPixels int) []Contour {
	w, h := edges.Bounds().Dx(), edges.Bounds().Dy()
	labels := make([]int32, w*h)
	contours := make([]Contour, 0)

	var label int32
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges.Pix[y*edges.Stride+x] == 0 || labels[y*w+x] != 0 {
				continue
			}
			label++
			size := floodFill(edges, labels, x, y, w, h, label)
			if size < minPixels {
				continue
			}
			pts := traceBoundary(labels, w, h, label, image.Pt(x, y), size)
			contours = append(contours, Contour{
				Points: pts,
				Area:   math.Abs(geometry.ShoelaceArea(pts)),
				Pixels: size,
			})
		}
	}
	return contours
}

// floodFill labels every edge pixel 8-connected to (startX, startY) and
// returns the component size.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow on
// large components.
func floodFill(edges *image.Gray, labels []int32, startX, startY, w, h int, label int32) int {
	stack := []image.Point{{X: startX, Y: startY}}
	labels[startY*w+startX] = label
	size := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		size++

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				if labels[ny*w+nx] != 0 || edges.Pix[ny*edges.Stride+nx] == 0 {
					continue
				}
				labels[ny*w+nx] = label
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return size
}

// 8-neighbourhood in clockwise order (y down): E, SE, S, SW, W, NW, N, NE.
var (
	neighbourDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	neighbourDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// traceBoundary follows the outer boundary of the labelled component by
// radial sweep: from each boundary pixel the neighbours are scanned
// clockwise starting just after the previous boundary pixel. start must be
// the component's first pixel in row-major order, so its west neighbour
// is outside the component.
//
// Tracing stops when the walk leaves start in the same direction as it did
// the first time, which handles components that pass through start twice.
func traceBoundary(labels []int32, w, h int, label int32, start image.Point, size int) []geometry.Point {
	inside := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == label
	}

	pts := []geometry.Point{{X: float64(start.X), Y: float64(start.Y)}}

	cur := start
	back := 4 // west
	firstDir := -1
	maxSteps := 4*size + 8

	for step := 0; step < maxSteps; step++ {
		dir := -1
		for k := 1; k <= 8; k++ {
			i := (back + k) % 8
			if inside(cur.X+neighbourDX[i], cur.Y+neighbourDY[i]) {
				dir = i
				break
			}
		}
		if dir < 0 {
			// isolated pixel
			break
		}

		if cur == start {
			if firstDir < 0 {
				firstDir = dir
			} else if dir == firstDir {
				break
			}
		}

		cur = image.Pt(cur.X+neighbourDX[dir], cur.Y+neighbourDY[dir])
		back = (dir + 4) % 8
		if cur != start {
			pts = append(pts, geometry.Point{X: float64(cur.X), Y: float64(cur.Y)})
		}
	}
	return pts
}

// closedLength returns the length of the closed polyline through pts.
func closedLength(pts []geometry.Point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += pts[i].Dist(pts[(i+1)%n])
	}
	return sum
}
