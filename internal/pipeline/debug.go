package pipeline

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/docscan/internal/imaging"
)

// writeDebug saves the intermediate images of one photo to the debug
// directory. Failures are logged and otherwise ignored.
func (p *Pipeline) writeDebug(name string, photo image.Image, res *PreprocessResult, page image.Image) {
	if p.debugDir == "" || name == "" {
		return
	}
	log := p.logger.With().Str("source", name).Logger()

	if err := os.MkdirAll(p.debugDir, 0755); err != nil {
		log.Warn().Err(err).Msg("cannot create debug directory")
		return
	}
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	save := func(suffix string, img image.Image) {
		path := filepath.Join(p.debugDir, stem+suffix)
		if err := imaging.Save(img, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("cannot write debug image")
		}
	}

	if edges, err := p.locator.EdgeMap(photo); err == nil {
		save("_edges.png", edges)
	}

	if res.Quad != nil {
		origin := photo.Bounds().Min
		pts := make([]image.Point, len(res.Quad))
		for i, c := range res.Quad {
			pts[i] = image.Pt(
				int(math.Round(c.X))-origin.X,
				int(math.Round(c.Y))-origin.Y,
			)
		}
		save("_overlay.png", imaging.DrawPolygon(photo, pts, imaging.OverlayOptions{
			Color:        p.overlayColor,
			Thickness:    3,
			LabelCorners: true,
		}))
	}

	if res.Outcome == OutcomeRectified {
		save("_rectified.png", page)
	}
}
