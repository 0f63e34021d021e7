//go:build !tesseract

package ocr

import (
	"context"
	"fmt"
	"image"
)

// Tesseract is the placeholder engine used when the program is built
// without the tesseract tag. Every call fails with ErrUnavailable.
type Tesseract struct {
	tessdataPrefix string
}

// NewTesseract returns the placeholder engine.
func NewTesseract(tessdataPrefix string) *Tesseract {
	return &Tesseract{tessdataPrefix: tessdataPrefix}
}

var errNotCompiled = fmt.Errorf("%w: rebuild with -tags tesseract", ErrUnavailable)

// Recognize always fails.
func (t *Tesseract) Recognize(context.Context, image.Image, Options) (string, error) {
	return "", errNotCompiled
}

// Words always fails.
func (t *Tesseract) Words(context.Context, image.Image, Options) ([]Word, error) {
	return nil, errNotCompiled
}

// Info reports the engine as unavailable.
func (t *Tesseract) Info() Info {
	return Info{
		Available:    false,
		Error:        errNotCompiled.Error(),
		Backend:      "none",
		TessdataPath: t.tessdataPrefix,
	}
}
