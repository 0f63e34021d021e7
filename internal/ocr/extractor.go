package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

// Status classifies the outcome of a recognition call.
type Status string

const (
	StatusOK     Status = "ok"      // Text was recognized
	StatusNoText Status = "no_text" // The engine ran and found nothing
	StatusFailed Status = "failed"  // The engine errored, panicked or timed out
)

// Result is the outcome of recognizing one page.
type Result struct {
	Text   string `json:"text"`
	Status Status `json:"status"`

	// Err is set when Status is StatusFailed.
	Err error `json:"-"`
}

// Extractor runs an Engine with a deadline and cleans up its output.
// It is safe for concurrent use if the engine is.
type Extractor struct {
	engine  Engine
	opts    Options
	timeout time.Duration
	logger  zerolog.Logger
}

// NewExtractor returns an Extractor. A timeout <= 0 means no deadline
// beyond the caller's context. engine may be nil, in which case every call
// fails with ErrUnavailable.
func NewExtractor(engine Engine, opts Options, timeout time.Duration, logger zerolog.Logger) *Extractor {
	return &Extractor{
		engine:  engine,
		opts:    opts,
		timeout: timeout,
		logger:  logger.With().Str("component", "ocr").Logger(),
	}
}

// Options returns the options passed to the engine.
func (e *Extractor) Options() Options {
	return e.opts
}

// Engine returns the wrapped engine.
func (e *Extractor) Engine() Engine {
	return e.engine
}

// Recognize runs the engine on img. It never panics and never blocks past
// the timeout: a panicking or hung engine yields StatusFailed. The text is
// trimmed and converted to Unicode NFC.
//
// A hung engine's goroutine is abandoned, not killed. It exits whenever the
// engine returns.
func (e *Extractor) Recognize(ctx context.Context, img image.Image) Result {
	if e.engine == nil {
		return e.failed(ErrUnavailable)
	}

	var text string
	err := e.guard(ctx, func(ctx context.Context) error {
		var err error
		text, err = e.engine.Recognize(ctx, img, e.opts)
		return err
	})
	if err != nil {
		return e.failed(err)
	}
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return Result{Status: StatusNoText}
	}
	return Result{Text: text, Status: StatusOK}
}

// Words returns the words on img with their boxes, under the same timeout
// and panic protection as Recognize. Engines that do not implement
// WordEngine yield ErrWordsUnsupported. Word text is converted to NFC and
// blank words are dropped.
func (e *Extractor) Words(ctx context.Context, img image.Image) ([]Word, error) {
	if e.engine == nil {
		return nil, ErrUnavailable
	}
	we, ok := e.engine.(WordEngine)
	if !ok {
		return nil, ErrWordsUnsupported
	}

	var words []Word
	err := e.guard(ctx, func(ctx context.Context) error {
		var err error
		words, err = we.Words(ctx, img, e.opts)
		return err
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("word recognition failed")
		return nil, err
	}

	out := make([]Word, 0, len(words))
	for _, w := range words {
		w.Text = norm.NFC.String(strings.TrimSpace(w.Text))
		if w.Text != "" {
			out = append(out, w)
		}
	}
	return out, nil
}

// guard runs fn in its own goroutine and waits for it, the timeout or
// ctx, whichever comes first. A panic in fn is returned as an error.
// fn's results must only be read when guard returns nil.
func (e *Extractor) guard(ctx context.Context, fn func(context.Context) error) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("ocr engine panicked: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
		}
		return err
	}
}

// Text returns the recognized text, or "" when the engine failed or found
// nothing.
func (e *Extractor) Text(ctx context.Context, img image.Image) string {
	return e.Recognize(ctx, img).Text
}

func (e *Extractor) failed(err error) Result {
	e.logger.Warn().Err(err).Msg("text recognition failed")
	return Result{Status: StatusFailed, Err: err}
}
