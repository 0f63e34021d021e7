// Package pipeline chains document location, perspective correction,
// binarization and text recognition for one photo or a batch of photos.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/enhance"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/ocr"
)

// Outcome says how the page image of a PreprocessResult was produced.
type Outcome string

const (
	// OutcomeRectified means a document was found and warped to a
	// rectangle.
	OutcomeRectified Outcome = "rectified"

	// OutcomeNoDocument means no document outline was found. The whole
	// photo was normalized.
	OutcomeNoDocument Outcome = "no_document"

	// OutcomeGeometryFallback means an outline was found but could not be
	// rectified. The whole photo was normalized.
	OutcomeGeometryFallback Outcome = "geometry_fallback"
)

// PreprocessResult is the binarized page and how it was obtained.
type PreprocessResult struct {
	// Image is the binary page, every pixel 0 or 255.
	Image *image.Gray

	// Quad is the ordered document outline in photo coordinates, or nil
	// when none was found.
	Quad *geometry.Quad

	Outcome Outcome

	// Err is the rectification error behind OutcomeGeometryFallback.
	Err error
}

// Document is the full result for one photo.
type Document struct {
	Source     string
	Preprocess *PreprocessResult
	Text       ocr.Result
	Elapsed    time.Duration
}

// Options configure a Pipeline. Zero fields get defaults.
type Options struct {
	Locator    *detection.Locator
	Orderer    geometry.Orderer
	Normalizer *enhance.Normalizer
	Extractor  *ocr.Extractor
	Logger     zerolog.Logger
	Metrics    *Metrics

	// DebugDir, when set, receives edge maps, outline overlays and
	// rectified pages for every named photo.
	DebugDir     string
	OverlayColor string
}

// Pipeline processes photos of documents. It holds no per-photo state and
// is safe for concurrent use.
type Pipeline struct {
	locator      *detection.Locator
	orderer      geometry.Orderer
	normalizer   *enhance.Normalizer
	extractor    *ocr.Extractor
	logger       zerolog.Logger
	metrics      *Metrics
	debugDir     string
	overlayColor string
}

// New creates a pipeline from opts.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		locator:      opts.Locator,
		orderer:      opts.Orderer,
		normalizer:   opts.Normalizer,
		extractor:    opts.Extractor,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		debugDir:     opts.DebugDir,
		overlayColor: opts.OverlayColor,
	}
	if p.locator == nil {
		p.locator = detection.NewLocator(detection.DefaultConfig())
	}
	if p.orderer == nil {
		p.orderer = geometry.SumDiffOrderer
	}
	if p.normalizer == nil {
		p.normalizer = enhance.NewNormalizer(enhance.DefaultConfig())
	}
	if p.extractor == nil {
		p.extractor = ocr.NewExtractor(nil, ocr.DefaultOptions(), 0, p.logger)
	}
	return p
}

// NewFromConfig creates a pipeline from loaded configuration using engine
// for text recognition.
func NewFromConfig(cfg *config.Config, engine ocr.Engine, logger zerolog.Logger, metrics *Metrics) (*Pipeline, error) {
	orderer, err := cfg.Orderer()
	if err != nil {
		return nil, err
	}
	return New(Options{
		Locator:      detection.NewLocator(cfg.ToLocatorConfig()),
		Orderer:      orderer,
		Normalizer:   enhance.NewNormalizer(cfg.ToNormalizerConfig()),
		Extractor:    ocr.NewExtractor(engine, cfg.ToOCROptions(), cfg.OCR.Timeout, logger),
		Logger:       logger,
		Metrics:      metrics,
		DebugDir:     cfg.Debug.Dir,
		OverlayColor: cfg.Debug.OverlayColor,
	}), nil
}

// Locator returns the document locator.
func (p *Pipeline) Locator() *detection.Locator {
	return p.locator
}

// Orderer returns the corner orderer.
func (p *Pipeline) Orderer() geometry.Orderer {
	return p.orderer
}

// Preprocess locates the document in img, rectifies it and binarizes the
// result. When no document is found, or the outline cannot be rectified,
// the whole photo is binarized instead and Outcome says so.
//
// The only errors are imaging.ErrEmptyImage for an empty photo and the
// context's error.
func (p *Pipeline) Preprocess(ctx context.Context, img image.Image) (*PreprocessResult, error) {
	return p.preprocess(ctx, img, "")
}

func (p *Pipeline) preprocess(ctx context.Context, img image.Image, name string) (*PreprocessResult, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, imaging.ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := p.logger.With().Str("source", name).Logger()

	start := time.Now()
	quad, err := p.locator.Locate(img)
	p.metrics.observeStage(StageLocate, start)
	if err != nil {
		return nil, fmt.Errorf("locate document: %w", err)
	}

	res := &PreprocessResult{Outcome: OutcomeNoDocument}
	page := img

	if quad == nil {
		log.Debug().Msg("no document outline found, using whole photo")
	} else {
		ordered := p.orderer.Order(*quad)
		res.Quad = &ordered

		start = time.Now()
		rectified, err := geometry.Rectify(img, ordered)
		p.metrics.observeStage(StageRectify, start)

		switch {
		case err == nil:
			page = rectified
			res.Outcome = OutcomeRectified
			log.Debug().
				Str("quad", fmt.Sprint(ordered)).
				Int("width", rectified.Bounds().Dx()).
				Int("height", rectified.Bounds().Dy()).
				Msg("document rectified")
		case errors.Is(err, geometry.ErrInvalidGeometry):
			res.Outcome = OutcomeGeometryFallback
			res.Err = err
			log.Warn().Err(err).Msg("cannot rectify document outline, using whole photo")
		default:
			return nil, fmt.Errorf("rectify: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	bin, err := p.normalizer.Normalize(page)
	p.metrics.observeStage(StageNormalize, start)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	res.Image = bin

	p.metrics.countDocument(res.Outcome)
	p.writeDebug(name, img, res, page)
	return res, nil
}

// Recognize runs OCR on a binarized page. Failures are reported in the
// Result, never as a panic or an error.
func (p *Pipeline) Recognize(ctx context.Context, bin image.Image) ocr.Result {
	start := time.Now()
	res := p.extractor.Recognize(ctx, bin)
	p.metrics.observeStage(StageOCR, start)
	p.metrics.countOCR(res)
	return res
}

// ExtractText returns the text on a binarized page, or "" when there is
// none or recognition failed.
func (p *Pipeline) ExtractText(ctx context.Context, bin image.Image) string {
	return p.Recognize(ctx, bin).Text
}

// Words returns the words on a binarized page with their bounding boxes,
// when the OCR engine can report them.
func (p *Pipeline) Words(ctx context.Context, bin image.Image) ([]ocr.Word, error) {
	return p.extractor.Words(ctx, bin)
}

// Process preprocesses img and recognizes its text.
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*Document, error) {
	return p.process(ctx, img, "")
}

func (p *Pipeline) process(ctx context.Context, img image.Image, name string) (*Document, error) {
	start := time.Now()

	pre, err := p.preprocess(ctx, img, name)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Source:     name,
		Preprocess: pre,
		Text:       p.Recognize(ctx, pre.Image),
	}
	doc.Elapsed = time.Since(start)

	p.logger.Info().
		Str("source", name).
		Str("outcome", string(pre.Outcome)).
		Str("ocr", string(doc.Text.Status)).
		Int("text_length", len([]rune(doc.Text.Text))).
		Dur("elapsed", doc.Elapsed).
		Msg("document processed")
	return doc, nil
}
