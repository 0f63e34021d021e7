package pipeline

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/ironsheep/docscan/internal/imaging"
)

// Input is one photo of a batch. When Image is nil the photo is loaded
// from Path by the worker that processes it.
type Input struct {
	Path  string
	Image image.Image
}

// Name identifies the input in logs and results.
func (in Input) Name() string {
	return in.Path
}

// ProgressFunc is called after each photo of a batch finishes, with the
// number of finished photos and the batch size. Calls are serialized.
type ProgressFunc func(done, total int)

// BatchOptions configure ProcessBatch.
type BatchOptions struct {
	// Workers is the number of photos processed at once. 0 uses one
	// worker per CPU.
	Workers int

	Progress ProgressFunc
}

// BatchResult is the outcome for one input, at the input's index.
type BatchResult struct {
	Index    int
	Source   string
	Document *Document
	Err      error
}

// ProcessBatch processes inputs on a pool of workers. The result slice
// has one entry per input in input order. A failing photo does not affect
// the others. When ctx is canceled no further photos are started, and the
// photos never started get ctx.Err() as their error.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []Input, opts BatchOptions) []BatchResult {
	results := make([]BatchResult, len(inputs))
	for i, in := range inputs {
		results[i] = BatchResult{Index: i, Source: in.Name()}
	}
	if len(inputs) == 0 {
		return results
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	started := make([]bool, len(inputs))
	jobs := make(chan int)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				doc, err := p.processInput(ctx, inputs[i])
				results[i].Document = doc
				results[i].Err = err

				if err != nil {
					p.logger.Warn().Err(err).Str("source", inputs[i].Name()).Msg("document failed")
				}
				if opts.Progress != nil {
					mu.Lock()
					done++
					opts.Progress(done, len(inputs))
					mu.Unlock()
				}
			}
		}()
	}

dispatch:
	for i := range inputs {
		select {
		case <-ctx.Done():
			break dispatch
		default:
		}
		select {
		case jobs <- i:
			started[i] = true
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i := range results {
		if !started[i] {
			results[i].Err = ctx.Err()
		}
	}
	return results
}

func (p *Pipeline) processInput(ctx context.Context, in Input) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := in.Image
	if img == nil {
		loaded, err := imaging.Open(in.Path)
		if err != nil {
			return nil, err
		}
		img = loaded
	}
	return p.process(ctx, img, in.Name())
}
