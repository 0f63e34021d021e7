package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "docscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "DOCSCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with its own viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// NewLoaderWithViper creates a loader on top of v, so flags bound to v
// take part in resolution.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the first docscan.yaml found on the search path, applies
// environment overrides and defaults, and validates the result. A missing
// config file is not an error.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.unmarshal()
}

// LoadWithFile loads configuration from a specific file path. An empty
// path falls back to Load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range SearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables maps DOCSCAN_LOCATOR_CANNY_LOW to
// locator.canny_low and so on.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("log_format", d.LogFormat)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("locator.canny_low", d.Locator.CannyLow)
	l.v.SetDefault("locator.canny_high", d.Locator.CannyHigh)
	l.v.SetDefault("locator.approx_epsilon", d.Locator.ApproxEpsilon)
	l.v.SetDefault("locator.min_area_ratio", d.Locator.MinAreaRatio)
	l.v.SetDefault("locator.max_area_ratio", d.Locator.MaxAreaRatio)
	l.v.SetDefault("locator.min_aspect", d.Locator.MinAspect)
	l.v.SetDefault("locator.max_aspect", d.Locator.MaxAspect)
	l.v.SetDefault("locator.min_component_pixels", d.Locator.MinComponentPixels)
	l.v.SetDefault("locator.refine_corners", d.Locator.RefineCorners)

	l.v.SetDefault("normalizer.clip_limit", d.Normalizer.ClipLimit)
	l.v.SetDefault("normalizer.tiles_x", d.Normalizer.TilesX)
	l.v.SetDefault("normalizer.tiles_y", d.Normalizer.TilesY)
	l.v.SetDefault("normalizer.morph_radius", d.Normalizer.MorphRadius)

	l.v.SetDefault("geometry.orderer", d.Geometry.Orderer)

	l.v.SetDefault("ocr.language", d.OCR.Language)
	l.v.SetDefault("ocr.page_seg_mode", d.OCR.PageSegMode)
	l.v.SetDefault("ocr.preserve_interword_spaces", d.OCR.PreserveInterwordSpaces)
	l.v.SetDefault("ocr.tessdata_prefix", d.OCR.TessdataPrefix)
	l.v.SetDefault("ocr.timeout", d.OCR.Timeout.String())

	l.v.SetDefault("batch.workers", d.Batch.Workers)

	l.v.SetDefault("output.pdf", d.Output.PDF)
	l.v.SetDefault("output.pdf_file", d.Output.PDFFile)
	l.v.SetDefault("output.max_preview", d.Output.MaxPreview)

	l.v.SetDefault("storage.base_dir", d.Storage.BaseDir)
	l.v.SetDefault("storage.save", d.Storage.Save)

	l.v.SetDefault("debug.dir", d.Debug.Dir)
	l.v.SetDefault("debug.overlay_color", d.Debug.OverlayColor)
}

// GenerateDefaultConfigFile writes a configuration file holding every
// default value.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	loader := NewLoader()
	loader.setDefaults()
	return loader.v.WriteConfigAs(filename)
}

// SearchPaths returns the directories searched for docscan.yaml, in
// order.
func SearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "docscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "docscan"))
	}

	return append(paths, "/etc/docscan")
}
