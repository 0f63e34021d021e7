// Package storage keeps scanned documents on disk and searches their text.
//
// Documents are grouped in one directory per day under a base directory.
// Each document is three files sharing an ID: the binarized page as PNG,
// the recognized text as UTF-8, and a YAML metadata sidecar.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
)

// DateLayout names the per-day directories.
const DateLayout = "2006-01-02"

// File extensions of the three files of a stored document.
const (
	ImageExt    = ".png"
	TextExt     = ".txt"
	MetadataExt = ".yaml"
)

// ErrEmptyQuery is returned by Search for an empty query.
var ErrEmptyQuery = errors.New("empty search query")

// Record is one processed document to store.
type Record struct {
	Source    string
	Image     image.Image
	Text      string
	Outcome   string
	Quad      *geometry.Quad
	OCRStatus string
}

// Metadata is the content of a document's sidecar file.
type Metadata struct {
	ID        string         `yaml:"id" json:"id"`
	Source    string         `yaml:"source,omitempty" json:"source,omitempty"`
	Outcome   string         `yaml:"outcome" json:"outcome"`
	Quad      *geometry.Quad `yaml:"quad,omitempty" json:"quad,omitempty"`
	OCRStatus string         `yaml:"ocr_status" json:"ocr_status"`
	Width     int            `yaml:"width" json:"width"`
	Height    int            `yaml:"height" json:"height"`
	TextChars int            `yaml:"text_chars" json:"text_chars"`
	CreatedAt time.Time      `yaml:"created_at" json:"created_at"`
}

// Saved lists the files written for one document.
type Saved struct {
	ID           string `json:"id"`
	Dir          string `json:"dir"`
	ImagePath    string `json:"image_path"`
	TextPath     string `json:"text_path"`
	MetadataPath string `json:"metadata_path"`
}

// Store saves and searches documents under a base directory.
type Store struct {
	fs     afero.Fs
	base   string
	logger zerolog.Logger
	now    func() time.Time
}

// New returns a Store rooted at base on fs.
func New(fs afero.Fs, base string, logger zerolog.Logger) *Store {
	return &Store{
		fs:     fs,
		base:   base,
		logger: logger.With().Str("component", "storage").Logger(),
		now:    time.Now,
	}
}

// NewOS returns a Store on the local filesystem.
func NewOS(base string, logger zerolog.Logger) *Store {
	return New(afero.NewOsFs(), base, logger)
}

// BaseDir returns the directory the store is rooted at.
func (s *Store) BaseDir() string {
	return s.base
}

// OutputDir creates, if needed, and returns the directory for documents
// saved at t: base/YYYY-MM-DD.
func OutputDir(fs afero.Fs, base string, t time.Time) (string, error) {
	dir := filepath.Join(base, t.Format(DateLayout))
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return dir, nil
}

// NewID returns a document ID for time t: scan-HHMMSS-<8 hex digits>.
func NewID(t time.Time) string {
	return fmt.Sprintf("scan-%s-%s", t.Format("150405"), uuid.NewString()[:8])
}

// Save writes the page image, text and metadata of rec into today's
// directory.
func (s *Store) Save(rec Record) (*Saved, error) {
	if rec.Image == nil || rec.Image.Bounds().Empty() {
		return nil, imaging.ErrEmptyImage
	}

	now := s.now()
	dir, err := OutputDir(s.fs, s.base, now)
	if err != nil {
		return nil, err
	}
	id := NewID(now)
	saved := &Saved{
		ID:           id,
		Dir:          dir,
		ImagePath:    filepath.Join(dir, id+ImageExt),
		TextPath:     filepath.Join(dir, id+TextExt),
		MetadataPath: filepath.Join(dir, id+MetadataExt),
	}

	var png bytes.Buffer
	if err := imaging.WritePNG(&png, rec.Image); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}

	meta := Metadata{
		ID:        id,
		Source:    rec.Source,
		Outcome:   rec.Outcome,
		Quad:      rec.Quad,
		OCRStatus: rec.OCRStatus,
		Width:     rec.Image.Bounds().Dx(),
		Height:    rec.Image.Bounds().Dy(),
		TextChars: len([]rune(rec.Text)),
		CreatedAt: now,
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	// A document is stored whole or not at all.
	files := []struct {
		what string
		path string
		data []byte
	}{
		{"page", saved.ImagePath, png.Bytes()},
		{"text", saved.TextPath, []byte(rec.Text)},
		{"metadata", saved.MetadataPath, data},
	}
	for i, f := range files {
		if err := afero.WriteFile(s.fs, f.path, f.data, 0644); err != nil {
			for _, written := range files[:i+1] {
				if rmErr := s.fs.Remove(written.path); rmErr != nil && !os.IsNotExist(rmErr) {
					s.logger.Warn().Err(rmErr).Str("path", written.path).Msg("failed to remove partial document")
				}
			}
			return nil, fmt.Errorf("write %s: %w", f.what, err)
		}
	}

	s.logger.Debug().
		Str("id", id).
		Str("source", rec.Source).
		Str("dir", dir).
		Msg("document saved")
	return saved, nil
}

// LoadMetadata reads a metadata sidecar.
func (s *Store) LoadMetadata(path string) (*Metadata, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return &meta, nil
}
