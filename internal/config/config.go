// Package config loads docscan settings from files, environment variables
// and command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/enhance"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/logging"
	"github.com/ironsheep/docscan/internal/ocr"
)

// Config is the complete docscan configuration.
type Config struct {
	// Global settings
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Locator    detection.Config `mapstructure:"locator" yaml:"locator" json:"locator"`
	Normalizer enhance.Config   `mapstructure:"normalizer" yaml:"normalizer" json:"normalizer"`
	Geometry   GeometryConfig   `mapstructure:"geometry" yaml:"geometry" json:"geometry"`
	OCR        OCRConfig        `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Batch      BatchConfig      `mapstructure:"batch" yaml:"batch" json:"batch"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output" json:"output"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage" json:"storage"`
	Debug      DebugConfig      `mapstructure:"debug" yaml:"debug" json:"debug"`
}

// GeometryConfig selects how detected corners are assigned to roles.
type GeometryConfig struct {
	Orderer string `mapstructure:"orderer" yaml:"orderer" json:"orderer"` // sumdiff or angle
}

// OCRConfig contains text recognition settings.
type OCRConfig struct {
	Language                string        `mapstructure:"language" yaml:"language" json:"language"`
	PageSegMode             int           `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	PreserveInterwordSpaces bool          `mapstructure:"preserve_interword_spaces" yaml:"preserve_interword_spaces" json:"preserve_interword_spaces"`
	TessdataPrefix          string        `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
	Timeout                 time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	// Workers is the number of images processed at once. 0 uses one worker
	// per CPU.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// OutputConfig controls the products written by the scan command.
type OutputConfig struct {
	// PDF is one of images, text, overlay or none.
	PDF     string `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	PDFFile string `mapstructure:"pdf_file" yaml:"pdf_file" json:"pdf_file"`

	// MaxPreview bounds the longer side of images returned by the MCP
	// server. 0 disables downscaling.
	MaxPreview int `mapstructure:"max_preview" yaml:"max_preview" json:"max_preview"`
}

// StorageConfig controls where scanned documents are saved.
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir" json:"base_dir"`
	Save    bool   `mapstructure:"save" yaml:"save" json:"save"`
}

// DebugConfig controls the intermediate images written per photo.
type DebugConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir" json:"dir"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
}

// PDF output modes.
const (
	PDFImages  = "images"
	PDFText    = "text"
	PDFOverlay = "overlay"
	PDFNone    = "none"
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	opts := ocr.DefaultOptions()
	return &Config{
		LogLevel:   "info",
		LogFormat:  "console",
		Locator:    detection.DefaultConfig(),
		Normalizer: enhance.DefaultConfig(),
		Geometry:   GeometryConfig{Orderer: "sumdiff"},
		OCR: OCRConfig{
			Language:                opts.Language,
			PageSegMode:             int(opts.PageSegMode),
			PreserveInterwordSpaces: opts.PreserveInterwordSpaces,
			Timeout:                 30 * time.Second,
		},
		Output: OutputConfig{
			PDF:        PDFNone,
			PDFFile:    "scanned_documents.pdf",
			MaxPreview: 1024,
		},
		Storage: StorageConfig{
			BaseDir: "ScannedDocuments",
			Save:    true,
		},
		Debug: DebugConfig{
			OverlayColor: "#00FF00",
		},
	}
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if err := c.Locator.Validate(); err != nil {
		return fmt.Errorf("locator: %w", err)
	}
	if err := c.Normalizer.Validate(); err != nil {
		return fmt.Errorf("normalizer: %w", err)
	}
	if _, err := geometry.OrdererByName(c.Geometry.Orderer); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}
	if err := c.OCR.validate(); err != nil {
		return fmt.Errorf("ocr: %w", err)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch: workers must be non-negative, got %d", c.Batch.Workers)
	}
	switch c.Output.PDF {
	case PDFImages, PDFText, PDFOverlay, PDFNone:
	default:
		return fmt.Errorf("output: pdf must be images, text, overlay or none, got %q", c.Output.PDF)
	}
	if c.Output.MaxPreview < 0 {
		return fmt.Errorf("output: max_preview must be non-negative, got %d", c.Output.MaxPreview)
	}
	if c.Storage.Save && c.Storage.BaseDir == "" {
		return fmt.Errorf("storage: base_dir is required when save is enabled")
	}
	if c.Debug.OverlayColor != "" {
		if _, err := imaging.ParseColor(c.Debug.OverlayColor); err != nil {
			return fmt.Errorf("debug: overlay_color: %w", err)
		}
	}
	return nil
}

func (c OCRConfig) validate() error {
	if c.Language == "" {
		return fmt.Errorf("language is required")
	}
	if c.PageSegMode < 0 || c.PageSegMode > 13 {
		return fmt.Errorf("page_seg_mode must be between 0 and 13, got %d", c.PageSegMode)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %s", c.Timeout)
	}
	return nil
}

// ToLocatorConfig returns the document locator settings.
func (c *Config) ToLocatorConfig() detection.Config {
	return c.Locator
}

// ToNormalizerConfig returns the image normalizer settings.
func (c *Config) ToNormalizerConfig() enhance.Config {
	return c.Normalizer
}

// ToOCROptions returns the per-call recognition options.
func (c *Config) ToOCROptions() ocr.Options {
	return ocr.Options{
		Language:                c.OCR.Language,
		PageSegMode:             ocr.PageSegMode(c.OCR.PageSegMode),
		PreserveInterwordSpaces: c.OCR.PreserveInterwordSpaces,
	}
}

// ToLoggingConfig returns the logger settings. Verbose forces debug.
func (c *Config) ToLoggingConfig() logging.Config {
	level := c.LogLevel
	if c.Verbose {
		level = "debug"
	}
	return logging.Config{Level: level, Format: c.LogFormat}
}

// Orderer returns the configured corner orderer.
func (c *Config) Orderer() (geometry.Orderer, error) {
	return geometry.OrdererByName(c.Geometry.Orderer)
}
