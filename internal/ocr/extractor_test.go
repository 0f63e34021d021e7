package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// createPage creates a white page with a black bar.
func createPage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 10; y < 20; y++ {
		for x := 10; x < width-10; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	return img
}

func staticEngine(text string, err error) Engine {
	return EngineFunc(func(context.Context, image.Image, Options) (string, error) {
		return text, err
	})
}

func TestExtractor_Recognize(t *testing.T) {
	tests := []struct {
		name       string
		engine     Engine
		wantText   string
		wantStatus Status
	}{
		{"plain text", staticEngine("Invoice 42", nil), "Invoice 42", StatusOK},
		{"trims whitespace", staticEngine("\n  Invoice 42 \n\n", nil), "Invoice 42", StatusOK},
		{"keeps inner spacing", staticEngine("Total     12.00\nTax  1.00", nil), "Total     12.00\nTax  1.00", StatusOK},
		{"empty", staticEngine("", nil), "", StatusNoText},
		{"whitespace only", staticEngine(" \n\t ", nil), "", StatusNoText},
		{"engine error", staticEngine("partial", errors.New("boom")), "", StatusFailed},
		{"no engine", nil, "", StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExtractor(tt.engine, DefaultOptions(), time.Second, zerolog.Nop())
			res := ex.Recognize(context.Background(), createPage(50, 30))

			if res.Text != tt.wantText {
				t.Errorf("Text: got %q, want %q", res.Text, tt.wantText)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status: got %q, want %q", res.Status, tt.wantStatus)
			}
			if (res.Status == StatusFailed) != (res.Err != nil) {
				t.Errorf("Err must be set exactly when failed, got %v", res.Err)
			}
		})
	}
}

func TestExtractor_NoEngineIsUnavailable(t *testing.T) {
	res := NewExtractor(nil, DefaultOptions(), 0, zerolog.Nop()).Recognize(context.Background(), createPage(50, 30))
	if !errors.Is(res.Err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", res.Err)
	}
}

func TestExtractor_NormalizesToNFC(t *testing.T) {
	// "Cafe" followed by a combining acute accent
	ex := NewExtractor(staticEngine("Cafe\u0301", nil), DefaultOptions(), 0, zerolog.Nop())

	got := ex.Text(context.Background(), createPage(50, 30))
	if got != "Caf\u00e9" {
		t.Errorf("got %q, want composed form", got)
	}
}

func TestExtractor_PassesOptions(t *testing.T) {
	var seen Options
	engine := EngineFunc(func(_ context.Context, _ image.Image, opts Options) (string, error) {
		seen = opts
		return "x", nil
	})

	opts := Options{Language: "deu", PageSegMode: PSMSingleLine, PreserveInterwordSpaces: false}
	NewExtractor(engine, opts, 0, zerolog.Nop()).Recognize(context.Background(), createPage(50, 30))

	if seen != opts {
		t.Errorf("engine got %+v, want %+v", seen, opts)
	}
}

func TestExtractor_RecoversPanic(t *testing.T) {
	engine := EngineFunc(func(context.Context, image.Image, Options) (string, error) {
		panic("tesseract exploded")
	})
	ex := NewExtractor(engine, DefaultOptions(), time.Second, zerolog.Nop())

	res := ex.Recognize(context.Background(), createPage(50, 30))
	if res.Status != StatusFailed {
		t.Fatalf("Status: got %q, want failed", res.Status)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "panicked") {
		t.Errorf("unexpected error: %v", res.Err)
	}
	if ex.Text(context.Background(), createPage(50, 30)) != "" {
		t.Error("Text must be empty after a panic")
	}
}

func TestExtractor_TimesOutHungEngine(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	engine := EngineFunc(func(context.Context, image.Image, Options) (string, error) {
		// ignores ctx on purpose
		<-release
		return "late", nil
	})
	ex := NewExtractor(engine, DefaultOptions(), 50*time.Millisecond, zerolog.Nop())

	start := time.Now()
	res := ex.Recognize(context.Background(), createPage(50, 30))
	elapsed := time.Since(start)

	if !errors.Is(res.Err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", res.Err)
	}
	if res.Text != "" {
		t.Errorf("Text: got %q, want empty", res.Text)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Recognize blocked for %s", elapsed)
	}
}

func TestExtractor_CallerCancel(t *testing.T) {
	engine := EngineFunc(func(ctx context.Context, _ image.Image, _ Options) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	ex := NewExtractor(engine, DefaultOptions(), time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := ex.Recognize(ctx, createPage(50, 30))
	if res.Status != StatusFailed {
		t.Fatalf("Status: got %q, want failed", res.Status)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", res.Err)
	}
}

func TestExtractor_ConcurrentUse(t *testing.T) {
	var calls atomic.Int32
	engine := EngineFunc(func(context.Context, image.Image, Options) (string, error) {
		calls.Add(1)
		return "page", nil
	})
	ex := NewExtractor(engine, DefaultOptions(), time.Second, zerolog.Nop())

	done := make(chan Result)
	for i := 0; i < 8; i++ {
		go func() {
			done <- ex.Recognize(context.Background(), createPage(40, 30))
		}()
	}
	for i := 0; i < 8; i++ {
		if res := <-done; res.Text != "page" {
			t.Errorf("got %q", res.Text)
		}
	}
	if calls.Load() != 8 {
		t.Errorf("engine called %d times, want 8", calls.Load())
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Language != "eng" || opts.PageSegMode != PSMSingleBlock || !opts.PreserveInterwordSpaces {
		t.Errorf("unexpected defaults: %+v", opts)
	}
	if PSMSingleBlock != 6 {
		t.Errorf("single block mode must be Tesseract's 6, got %d", PSMSingleBlock)
	}
}

func TestEncodePNG(t *testing.T) {
	data, err := encodePNG(createPage(40, 30))
	if err != nil {
		t.Fatalf("encodePNG failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("dimensions: got %v", img.Bounds())
	}

	if _, err := encodePNG(image.NewGray(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("expected error for empty image")
	}
}

// boxEngine reports fixed words with positions.
type boxEngine struct {
	words []Word
	err   error
	panic bool
}

func (b boxEngine) Recognize(context.Context, image.Image, Options) (string, error) {
	return "", nil
}

func (b boxEngine) Words(context.Context, image.Image, Options) ([]Word, error) {
	if b.panic {
		panic("word boxes exploded")
	}
	return b.words, b.err
}

func TestExtractor_Words(t *testing.T) {
	engine := boxEngine{words: []Word{
		{Text: "Invoice", Confidence: 0.93, Bounds: Bounds{X1: 10, Y1: 5, X2: 80, Y2: 20}},
		{Text: "Cafe\u0301", Confidence: 0.8, Bounds: Bounds{X1: 90, Y1: 5, X2: 130, Y2: 20}},
		{Text: "Café", Confidence: 0.8, Bounds: Bounds{X1: 90, Y1: 5, X2: 130, Y2: 20}},
	}}
	ex := NewExtractor(engine, DefaultOptions(), time.Second, zerolog.Nop())

	words, err := ex.Words(context.Background(), createPage(150, 30))
	if err != nil {
		t.Fatalf("Words failed: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2 (blank dropped): %+v", len(words), words)
	}
	if words[0].Bounds.X2 != 80 || words[0].Confidence != 0.93 {
		t.Errorf("first word: got %+v", words[0])
	}
	if words[1].Text != "Caf\u00e9" {
		t.Errorf("second word: got %q, want NFC form", words[1].Text)
	}
}

func TestExtractor_Words_Errors(t *testing.T) {
	tests := []struct {
		name    string
		engine  Engine
		wantErr error
	}{
		{"no engine", nil, ErrUnavailable},
		{"text only engine", staticEngine("text", nil), ErrWordsUnsupported},
		{"engine error", boxEngine{err: ErrUnavailable}, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExtractor(tt.engine, DefaultOptions(), time.Second, zerolog.Nop())
			if _, err := ex.Words(context.Background(), createPage(40, 30)); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractor_Words_RecoversPanic(t *testing.T) {
	ex := NewExtractor(boxEngine{panic: true}, DefaultOptions(), time.Second, zerolog.Nop())

	_, err := ex.Words(context.Background(), createPage(40, 30))
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Errorf("unexpected error: %v", err)
	}
}
