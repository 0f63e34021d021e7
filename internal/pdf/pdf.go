// Package pdf assembles scanned pages into PDF files with pdfcpu.
//
// Three products are supported: the page images alone, the recognized text
// alone (one page per document), and the page images with the text laid
// over them invisibly so it can be selected and searched.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/imaging"
)

// Kind selects which PDF Write produces. The values match the
// output.pdf configuration setting.
type Kind string

const (
	KindImages  Kind = "images"
	KindText    Kind = "text"
	KindOverlay Kind = "overlay"
)

// Page layout of text pages.
const (
	FontName = "Helvetica"
	FontSize = 10
	Margin   = 50
)

// ErrNoPages is returned when there is nothing to write.
var ErrNoPages = errors.New("no pages to write")

// Page is one scanned document: its page image and recognized text.
type Page struct {
	Image image.Image
	Text  string
}

// Writer builds PDF files. A Writer is safe for concurrent use.
type Writer struct {
	logger zerolog.Logger
}

// NewWriter returns a Writer. pdfcpu's user configuration directory is
// never read or created.
func NewWriter(logger zerolog.Logger) *Writer {
	api.DisableConfigDir()
	return &Writer{logger: logger.With().Str("component", "pdf").Logger()}
}

func (w *Writer) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Write produces the PDF of the given kind.
func (w *Writer) Write(out io.Writer, kind Kind, pages []Page) error {
	switch kind {
	case KindImages:
		return w.ImagesOnly(out, pages)
	case KindText:
		return w.TextOnly(out, pages)
	case KindOverlay:
		return w.ImagesWithText(out, pages)
	default:
		return fmt.Errorf("unknown PDF kind %q", kind)
	}
}

// WriteFile produces the PDF of the given kind at path.
func (w *Writer) WriteFile(path string, kind Kind, pages []Page) error {
	var buf bytes.Buffer
	if err := w.Write(&buf, kind, pages); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.logger.Debug().Str("path", path).Str("kind", string(kind)).Int("pages", len(pages)).Msg("PDF written")
	return nil
}

// ImagesOnly writes one A4 page per document showing its page image,
// scaled to fit.
func (w *Writer) ImagesOnly(out io.Writer, pages []Page) error {
	if len(pages) == 0 {
		return ErrNoPages
	}
	imgs := make([]image.Image, len(pages))
	for i, p := range pages {
		if p.Image == nil || p.Image.Bounds().Empty() {
			return fmt.Errorf("page %d: %w", i+1, imaging.ErrEmptyImage)
		}
		imgs[i] = p.Image
	}
	return w.importImages(out, imgs)
}

// TextOnly writes one A4 page per document headed "Document N" and
// followed by the document's text.
func (w *Writer) TextOnly(out io.Writer, pages []Page) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	blank := image.NewGray(image.Rect(0, 0, 1, 1))
	blank.Pix[0] = 255
	imgs := make([]image.Image, len(pages))
	for i := range imgs {
		imgs[i] = blank
	}

	var base bytes.Buffer
	if err := w.importImages(&base, imgs); err != nil {
		return err
	}

	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = fmt.Sprintf("Document %d\n \n%s", i+1, p.Text)
	}
	return w.stampText(out, base.Bytes(), texts, 1)
}

// ImagesWithText writes the page images with each document's text laid
// over its page at zero opacity. The text is invisible but selectable.
func (w *Writer) ImagesWithText(out io.Writer, pages []Page) error {
	var base bytes.Buffer
	if err := w.ImagesOnly(&base, pages); err != nil {
		return err
	}
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return w.stampText(out, base.Bytes(), texts, 0)
}

func (w *Writer) importImages(out io.Writer, imgs []image.Image) error {
	readers := make([]io.Reader, len(imgs))
	for i, img := range imgs {
		var buf bytes.Buffer
		if err := imaging.WritePNG(&buf, img); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		readers[i] = &buf
	}

	imp, err := api.Import("form:A4, pos:c, scale:1.0 rel", types.POINTS)
	if err != nil {
		return fmt.Errorf("import settings: %w", err)
	}
	if err := api.ImportImages(nil, out, readers, imp, w.config()); err != nil {
		return fmt.Errorf("import images: %w", err)
	}
	return nil
}

// stampText writes text[i] onto page i+1 of the PDF in src, top-left
// aligned inside the page margin.
func (w *Writer) stampText(out io.Writer, src []byte, texts []string, opacity float64) error {
	desc := fmt.Sprintf(
		"font:%s, points:%d, scale:1 abs, pos:tl, off:%d -%d, align:l, rot:0, fillcolor:#000000, opacity:%g",
		FontName, FontSize, Margin, Margin, opacity,
	)

	cur := src
	for i, text := range texts {
		text = pdfText(text)
		if text == "" {
			continue
		}
		var next bytes.Buffer
		pages := []string{strconv.Itoa(i + 1)}
		wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("text stamp for page %d: %w", i+1, err)
		}
		if err := api.AddWatermarks(bytes.NewReader(cur), &next, pages, wm, w.config()); err != nil {
			return fmt.Errorf("add text to page %d: %w", i+1, err)
		}
		cur = next.Bytes()
	}

	_, err := out.Write(cur)
	return err
}

// pdfText prepares OCR text for a text stamp.
func pdfText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\t", "    ")
	return strings.TrimRight(s, "\n ")
}
