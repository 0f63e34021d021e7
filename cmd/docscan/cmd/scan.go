package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/pdf"
	"github.com/ironsheep/docscan/internal/pipeline"
	"github.com/ironsheep/docscan/internal/storage"
)

func newScanCmd(a *app) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [files|dirs...]",
		Short: "Scan photos of documents",
		Long: `Scan one or more photos of paper documents.

Each photo is searched for the document outline, flattened, cleaned up and
run through text recognition. Directories are expanded to the supported
images they contain (not recursively). Results are saved under the storage
base directory, one subdirectory per day, and optionally collected into a
PDF.

Examples:
  docscan scan receipt.jpg
  docscan scan photos/ --workers 4
  docscan scan photos/ --pdf text --no-save
  docscan scan photo.png --debug-dir debug/ --metrics-file scan.prom`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd, args)
		},
	}

	scanCmd.Flags().String("output-dir", "", "base directory for saved documents (overrides storage.base_dir)")
	scanCmd.Flags().Bool("no-save", false, "do not save scanned documents")
	scanCmd.Flags().String("pdf", "", "PDF to write: images, text, overlay or none (overrides output.pdf)")
	scanCmd.Flags().String("pdf-file", "", "PDF file name, relative to the day's output directory (overrides output.pdf_file)")
	scanCmd.Flags().Int("workers", 0, "photos processed at once, 0 for one per CPU (overrides batch.workers)")
	scanCmd.Flags().String("metrics-file", "", "write pipeline metrics in Prometheus text format to this file")
	scanCmd.Flags().String("debug-dir", "", "write edge maps, outlines and rectified pages to this directory")
	scanCmd.Flags().Bool("no-progress", false, "do not show the progress bar")
	return scanCmd
}

func (a *app) runScan(cmd *cobra.Command, args []string) error {
	cfg := *a.cfg
	applyScanFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no supported images found in %v", args)
	}

	reg := prometheus.NewRegistry()
	p, err := pipeline.NewFromConfig(&cfg, ocr.NewTesseract(cfg.OCR.TessdataPrefix), a.logger, pipeline.NewMetrics(reg))
	if err != nil {
		return err
	}

	opts := pipeline.BatchOptions{Workers: cfg.Batch.Workers}
	var bar *progressbar.ProgressBar
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
		bar = newProgressBar(cmd.ErrOrStderr(), len(inputs), "Scanning")
		opts.Progress = func(done, total int) {
			_ = bar.Set(done)
		}
	}

	results := p.ProcessBatch(cmdContext(cmd), inputs, opts)
	if bar != nil {
		_ = bar.Finish()
	}

	var store *storage.Store
	if cfg.Storage.Save {
		store = storage.NewOS(cfg.Storage.BaseDir, a.logger)
	}

	out := cmd.OutOrStdout()
	pages := make([]pdf.Page, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			color.New(color.FgRed).Fprintf(out, "✗ Failed to process %s: %v\n", r.Source, r.Err)
			continue
		}
		a.printDocument(out, store, r.Document)
		pages = append(pages, pdf.Page{
			Image: r.Document.Preprocess.Image,
			Text:  r.Document.Text.Text,
		})
	}

	if cfg.Output.PDF != config.PDFNone && len(pages) > 0 {
		path, err := pdfPath(cfg)
		if err != nil {
			return err
		}
		if err := pdf.NewWriter(a.logger).WriteFile(path, pdf.Kind(cfg.Output.PDF), pages); err != nil {
			return fmt.Errorf("writing PDF: %w", err)
		}
		color.New(color.FgGreen).Fprintf(out, "✓ Wrote %s PDF with %d page(s) to %s\n", cfg.Output.PDF, len(pages), path)
	}

	if metricsFile, _ := cmd.Flags().GetString("metrics-file"); metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	fmt.Fprintf(out, "%d of %d document(s) scanned\n", len(results)-failed, len(results))
	if failed == len(results) {
		return fmt.Errorf("all %d document(s) failed", failed)
	}
	return nil
}

// printDocument reports one scanned document and saves it when store is
// set. A failed save is reported but does not fail the batch.
func (a *app) printDocument(out io.Writer, store *storage.Store, doc *pipeline.Document) {
	pre := doc.Preprocess
	color.New(color.FgGreen).Fprintf(out, "✓ Processed %s", doc.Source)
	fmt.Fprintf(out, " (%s, %dx%d, %s)\n", pre.Outcome,
		pre.Image.Bounds().Dx(), pre.Image.Bounds().Dy(), doc.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  Extracted text length: %d\n", len([]rune(doc.Text.Text)))
	if doc.Text.Status == ocr.StatusFailed {
		color.New(color.FgYellow).Fprintf(out, "  Text recognition failed: %v\n", doc.Text.Err)
	}

	if store == nil {
		return
	}
	saved, err := store.Save(storage.Record{
		Source:    doc.Source,
		Image:     pre.Image,
		Text:      doc.Text.Text,
		Outcome:   string(pre.Outcome),
		Quad:      pre.Quad,
		OCRStatus: string(doc.Text.Status),
	})
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "  Failed to save: %v\n", err)
		return
	}
	fmt.Fprintf(out, "  Saved to %s\n", saved.ImagePath)
}

// applyScanFlags copies the flags the user set over cfg.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.Storage.BaseDir, _ = flags.GetString("output-dir")
	}
	if noSave, _ := flags.GetBool("no-save"); noSave {
		cfg.Storage.Save = false
	}
	if flags.Changed("pdf") {
		cfg.Output.PDF, _ = flags.GetString("pdf")
	}
	if flags.Changed("pdf-file") {
		cfg.Output.PDFFile, _ = flags.GetString("pdf-file")
	}
	if flags.Changed("workers") {
		cfg.Batch.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("debug-dir") {
		cfg.Debug.Dir, _ = flags.GetString("debug-dir")
	}
}

// collectInputs expands args into batch inputs. Files are taken as given;
// directories contribute their supported images in name order.
func collectInputs(args []string) ([]pipeline.Input, error) {
	var inputs []pipeline.Input
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// Reported per file by the batch.
			inputs = append(inputs, pipeline.Input{Path: arg})
			continue
		}
		if !info.IsDir() {
			inputs = append(inputs, pipeline.Input{Path: arg})
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() && imaging.IsSupported(e.Name()) {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			inputs = append(inputs, pipeline.Input{Path: filepath.Join(arg, name)})
		}
	}
	return inputs, nil
}

// pdfPath places a relative PDF file name in today's output directory.
func pdfPath(cfg config.Config) (string, error) {
	if filepath.IsAbs(cfg.Output.PDFFile) {
		return cfg.Output.PDFFile, nil
	}
	dir, err := storage.OutputDir(afero.NewOsFs(), cfg.Storage.BaseDir, time.Now())
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, cfg.Output.PDFFile), nil
}

// newProgressBar creates the batch progress bar on w.
func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}
