package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
)

var (
	// ErrUnavailable is returned when no OCR engine is compiled in or the
	// engine cannot be initialized.
	ErrUnavailable = errors.New("ocr engine unavailable")

	// ErrTimeout is returned when recognition does not finish in time.
	ErrTimeout = errors.New("ocr timed out")

	// ErrWordsUnsupported is returned when the engine cannot report word
	// positions.
	ErrWordsUnsupported = errors.New("ocr engine does not report word positions")
)

// PageSegMode selects how the engine splits the page into text blocks.
// Values match Tesseract's page segmentation modes.
type PageSegMode int

const (
	PSMAuto        PageSegMode = 3  // Fully automatic layout analysis
	PSMSingleBlock PageSegMode = 6  // Single uniform block of text
	PSMSingleLine  PageSegMode = 7  // Single text line
	PSMSparseText  PageSegMode = 11 // Find as much text as possible
)

// Options control a single recognition call.
type Options struct {
	// Language is a Tesseract language code such as "eng", or several
	// joined with "+".
	Language string `json:"language"`

	PageSegMode PageSegMode `json:"page_seg_mode"`

	// PreserveInterwordSpaces keeps runs of spaces between words instead
	// of collapsing them to one.
	PreserveInterwordSpaces bool `json:"preserve_interword_spaces"`
}

// DefaultOptions returns English, single block, spaces preserved.
func DefaultOptions() Options {
	return Options{
		Language:                "eng",
		PageSegMode:             PSMSingleBlock,
		PreserveInterwordSpaces: true,
	}
}

// Engine recognizes text in an image.
//
// Implementations should return early when ctx is done, but the Extractor
// does not rely on it.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, opts Options) (string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, img image.Image, opts Options) (string, error)

// Recognize calls f.
func (f EngineFunc) Recognize(ctx context.Context, img image.Image, opts Options) (string, error) {
	return f(ctx, img, opts)
}

// Bounds is a rectangle in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Word is a recognized word with its location and confidence.
type Word struct {
	Text string `json:"text"`

	// Confidence is between 0 and 1.
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// WordEngine is implemented by engines that can report word positions.
type WordEngine interface {
	Words(ctx context.Context, img image.Image, opts Options) ([]Word, error)
}

// Info describes the OCR backend.
type Info struct {
	Available    bool   `json:"available"`
	Version      string `json:"version,omitempty"`
	Error        string `json:"error,omitempty"`
	Backend      string `json:"backend"`
	TessdataPath string `json:"tessdata_path,omitempty"`
}

// encodePNG serializes img for engines that take encoded bytes.
func encodePNG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
