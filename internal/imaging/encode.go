package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

// EncodedImage carries an image encoded as base64 PNG for JSON transport.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG. When maxDim is positive and either
// side exceeds it, the image is first downscaled to fit within maxDim x
// maxDim preserving the aspect ratio.
func EncodePNG(img image.Image, maxDim int) (*EncodedImage, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	out := img
	b := img.Bounds()
	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		out = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Decode reverses EncodePNG.
func (e *EncodedImage) Decode() (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(e.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode png: %w", err)
	}
	return img, nil
}

// WritePNG encodes img as PNG to w.
func WritePNG(w io.Writer, img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	return imaging.Encode(w, img, imaging.PNG)
}

// Save writes img to path in the format implied by the file extension.
func Save(img image.Image, path string) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
