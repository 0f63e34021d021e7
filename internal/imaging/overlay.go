package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultOverlayColor is used when no colour or an unparseable colour is
// given to DrawPolygon.
var DefaultOverlayColor = color.RGBA{255, 0, 0, 255}

// OverlayOptions controls how a polygon overlay is drawn.
type OverlayOptions struct {
	// Color is a hex colour such as "#00FF00".
	Color string

	// Thickness is the stroke width in pixels (minimum 1).
	Thickness int

	// LabelCorners prints each vertex's rounded coordinates next to it.
	LabelCorners bool
}

// DrawPolygon copies img to a new RGBA canvas and strokes the closed
// polygon pts onto it.
func DrawPolygon(img image.Image, pts []image.Point, opts OverlayOptions) *image.RGBA {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	col, err := ParseColor(opts.Color)
	if err != nil {
		col = DefaultOverlayColor
	}

	if len(pts) >= 2 {
		for i := range pts {
			drawLine(canvas, pts[i], pts[(i+1)%len(pts)], col, opts.Thickness)
		}
	}

	if opts.LabelCorners {
		labelColor := color.RGBA{255, 255, 255, 255}
		bgColor := color.RGBA{0, 0, 0, 180}
		for _, p := range pts {
			drawLabel(canvas, p.X+3, p.Y+3, fmt.Sprintf("%d,%d", p.X, p.Y), labelColor, bgColor)
		}
	}
	return canvas
}

// ParseColor parses a hex colour string like "#FF0000".
func ParseColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, bl := c.RGB255()
	return color.RGBA{R: r, G: g, B: bl, A: 255}, nil
}

// drawLine draws a Bresenham line between a and b.
func drawLine(dst *image.RGBA, a, b image.Point, col color.RGBA, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.RGBA, thickness int) {
	r := (max(thickness, 1) - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.SetRGBA(xx, yy, col)
			}
		}
	}
}

// drawLabel draws a simple text label at the given position using a 3x5
// pixel font that covers digits, comma and minus.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'-': {"000", "000", "111", "000", "000"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if image.Pt(px, py).In(bounds) {
				img.Set(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if image.Pt(px, py).In(bounds) {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
