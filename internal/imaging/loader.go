package imaging

import (
	"container/list"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// formats maps the accepted scan input extensions to format names.
var formats = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".bmp":  "bmp",
	".gif":  "gif",
	".tif":  "tiff",
	".tiff": "tiff",
}

// IsSupported reports whether path has an accepted image extension.
func IsSupported(path string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Open decodes the image at path and applies its EXIF orientation, so a
// phone photo taken in portrait is returned upright.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return img, nil
}

// DefaultCacheSize is the number of decoded photos an ImageCache keeps
// when no limit is given.
const DefaultCacheSize = 16

type cacheEntry struct {
	key     string
	img     image.Image
	modTime time.Time
	size    int64
}

// ImageCache keeps recently decoded photos so that locating, previewing
// and scanning the same photo decode it once. Entries are keyed by
// absolute path and dropped when the file on disk changes (size or
// modification time), so a photo retaken under the same name is reloaded.
// The least recently used photo is evicted beyond the size limit.
//
// ImageCache is safe for concurrent use.
type ImageCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*list.Element
	order   *list.List // front is most recently used
}

// NewImageCache creates a cache holding at most maxEntries photos.
// maxEntries <= 0 uses DefaultCacheSize.
func NewImageCache(maxEntries int) *ImageCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	return &ImageCache{
		max:     maxEntries,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Load returns the decoded photo at path, from the cache when the file
// has not changed since it was decoded.
func (c *ImageCache) Load(path string) (image.Image, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	stat, err := os.Stat(key)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		if e.size == stat.Size() && e.modTime.Equal(stat.ModTime()) {
			c.order.MoveToFront(el)
			c.mu.Unlock()
			return e.img, nil
		}
		c.remove(el)
	}
	c.mu.Unlock()

	// Decoding happens outside the lock; two concurrent misses on the
	// same path both decode and the later one wins.
	img, err := Open(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:     key,
		img:     img,
		modTime: stat.ModTime(),
		size:    stat.Size(),
	})
	for c.order.Len() > c.max {
		c.remove(c.order.Back())
	}
	return img, nil
}

// remove drops el. c.mu must be held.
func (c *ImageCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}

// Len returns the number of cached photos.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear empties the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()
}

// Evict drops the photo at path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	key, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	c.mu.Unlock()
}

// ImageInfo describes a photo before it is scanned.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format comes from the file extension: png, jpeg, gif, bmp, tiff or
	// unknown.
	Format string `json:"format"`

	// Orientation is portrait, landscape or square, after EXIF rotation.
	Orientation string `json:"orientation"`

	Megapixels    float64 `json:"megapixels"`
	FileSizeBytes int64   `json:"file_size_bytes"`
}

// LoadImageInfo loads the photo at path through cache and describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format, ok := formats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		format = "unknown"
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	orientation := "square"
	switch {
	case h > w:
		orientation = "portrait"
	case w > h:
		orientation = "landscape"
	}

	return &ImageInfo{
		Width:         w,
		Height:        h,
		Format:        format,
		Orientation:   orientation,
		Megapixels:    float64(w*h) / 1e6,
		FileSizeBytes: stat.Size(),
	}, nil
}
