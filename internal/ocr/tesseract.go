//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is an Engine backed by the Tesseract library. A new gosseract
// client is created for every call, so one Tesseract is safe for
// concurrent use.
type Tesseract struct {
	tessdataPrefix string
}

// NewTesseract returns a Tesseract engine. tessdataPrefix is the directory
// holding the *.traineddata files; empty uses Tesseract's default.
func NewTesseract(tessdataPrefix string) *Tesseract {
	return &Tesseract{tessdataPrefix: tessdataPrefix}
}

// newClient creates a client configured for opts. The caller must close it.
func (t *Tesseract) newClient(opts Options) (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if t.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.tessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	psm := opts.PageSegMode
	if psm == 0 {
		psm = PSMSingleBlock
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	if opts.PreserveInterwordSpaces {
		if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set preserve_interword_spaces: %w", err)
		}
	}
	return client, nil
}

// Recognize returns the text Tesseract finds in img.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	client, err := t.newClient(opts)
	if err != nil {
		return "", err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Words returns the recognized words of img with their bounding boxes.
// Empty words are dropped.
func (t *Tesseract) Words(ctx context.Context, img image.Image, opts Options) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	client, err := t.newClient(opts)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get word boxes: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}
	return words, nil
}

// Info reports the library version.
func (t *Tesseract) Info() Info {
	client := gosseract.NewClient()
	defer client.Close()

	return Info{
		Available:    true,
		Version:      client.Version(),
		Backend:      "gosseract",
		TessdataPath: t.tessdataPrefix,
	}
}
