//go:build !tesseract

package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTesseractStub(t *testing.T) {
	engine := NewTesseract("/usr/share/tessdata")

	if _, err := engine.Recognize(context.Background(), createPage(40, 30), DefaultOptions()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Recognize: got %v, want ErrUnavailable", err)
	}
	if _, err := engine.Words(context.Background(), createPage(40, 30), DefaultOptions()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Words: got %v, want ErrUnavailable", err)
	}

	info := engine.Info()
	if info.Available {
		t.Error("stub must report unavailable")
	}
	if info.TessdataPath != "/usr/share/tessdata" {
		t.Errorf("TessdataPath: got %q", info.TessdataPath)
	}
}

func TestTesseractStub_ThroughExtractor(t *testing.T) {
	ex := NewExtractor(NewTesseract(""), DefaultOptions(), time.Second, zerolog.Nop())

	res := ex.Recognize(context.Background(), createPage(40, 30))
	if res.Status != StatusFailed || !errors.Is(res.Err, ErrUnavailable) {
		t.Errorf("got %+v", res)
	}
}
