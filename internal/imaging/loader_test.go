package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/bmp"
)

// writePhoto encodes a uniform photo as PNG at dir/name and returns its
// path.
func writePhoto(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, createInMemoryImage(width, height, color.Gray{Y: 128})); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestImageCache_Load(t *testing.T) {
	path := writePhoto(t, t.TempDir(), "page.png", 40, 30)
	cache := NewImageCache(0)

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first.Bounds().Dx() != 40 || first.Bounds().Dy() != 30 {
		t.Errorf("dimensions: got %v, want 40x30", first.Bounds())
	}

	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if first != second {
		t.Error("second Load should return the cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_RelativeAndAbsoluteShareEntry(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "page.png", 10, 10)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cache := NewImageCache(0)
	rel, err := cache.Load("page.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	abs, err := cache.Load(filepath.Join(dir, "page.png"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rel != abs || cache.Len() != 1 {
		t.Error("relative and absolute paths to one file should share an entry")
	}
}

func TestImageCache_ReloadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := writePhoto(t, dir, "page.png", 40, 30)
	cache := NewImageCache(0)

	if _, err := cache.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Retake the photo under the same name.
	writePhoto(t, dir, "page.png", 60, 80)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 60 || img.Bounds().Dy() != 80 {
		t.Errorf("dimensions: got %v, want the retaken 60x80", img.Bounds())
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_EvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	a := writePhoto(t, dir, "a.png", 5, 5)
	b := writePhoto(t, dir, "b.png", 5, 5)
	c := writePhoto(t, dir, "c.png", 5, 5)
	cache := NewImageCache(2)

	imgA, _ := cache.Load(a)
	cache.Load(b)
	cache.Load(a) // a is now more recent than b
	cache.Load(c) // evicts b

	if cache.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", cache.Len())
	}
	again, _ := cache.Load(a)
	if again != imgA {
		t.Error("a was used recently and should still be cached")
	}
	if cache.Len() != 2 {
		t.Errorf("Len after hit: got %d, want 2", cache.Len())
	}
}

func TestImageCache_Load_Errors(t *testing.T) {
	cache := NewImageCache(0)

	if _, err := cache.Load("/nonexistent/image.png"); err == nil {
		t.Error("expected error for non-existent file")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(bad); err == nil {
		t.Error("expected error for invalid image")
	}
	if cache.Len() != 0 {
		t.Errorf("failed loads must not be cached, Len: %d", cache.Len())
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	dir := t.TempDir()
	a := writePhoto(t, dir, "a.png", 5, 5)
	b := writePhoto(t, dir, "b.png", 5, 5)
	cache := NewImageCache(0)
	cache.Load(a)
	cache.Load(b)

	cache.Evict(a)
	cache.Evict("/never/loaded.png")
	if cache.Len() != 1 {
		t.Errorf("Len after Evict: got %d, want 1", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", cache.Len())
	}
	if _, err := cache.Load(b); err != nil {
		t.Errorf("Load after Clear failed: %v", err)
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePhoto(t, dir, "a.png", 20, 20),
		writePhoto(t, dir, "b.png", 20, 20),
		writePhoto(t, dir, "c.png", 20, 20),
	}
	cache := NewImageCache(2)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := cache.Load(paths[i%len(paths)]); err != nil {
				t.Errorf("concurrent Load failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n := cache.Len(); n > 2 {
		t.Errorf("Len: got %d, want at most 2", n)
	}
}

func TestLoadImageInfo(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name        string
		width       int
		height      int
		format      string
		orientation string
	}{
		{"receipt.png", 200, 500, "png", "portrait"},
		{"letter.PNG", 300, 200, "png", "landscape"},
		{"square.png", 50, 50, "png", "square"},
	}

	cache := NewImageCache(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePhoto(t, dir, tt.name, tt.width, tt.height)
			info, err := LoadImageInfo(cache, path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}
			if info.Width != tt.width || info.Height != tt.height {
				t.Errorf("dimensions: got %dx%d", info.Width, info.Height)
			}
			if info.Format != tt.format {
				t.Errorf("Format: got %s, want %s", info.Format, tt.format)
			}
			if info.Orientation != tt.orientation {
				t.Errorf("Orientation: got %s, want %s", info.Orientation, tt.orientation)
			}
			want := float64(tt.width*tt.height) / 1e6
			if absFloat(info.Megapixels-want) > 1e-9 {
				t.Errorf("Megapixels: got %v, want %v", info.Megapixels, want)
			}
			if info.FileSizeBytes <= 0 {
				t.Error("FileSizeBytes should be positive")
			}
		})
	}
}

func TestLoadImageInfo_UnknownExtension(t *testing.T) {
	// Decoding sniffs the content, so a PNG with an odd name still loads.
	path := writePhoto(t, t.TempDir(), "scan.img", 8, 8)
	info, err := LoadImageInfo(NewImageCache(0), path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}
	if info.Format != "unknown" {
		t.Errorf("Format: got %s, want unknown", info.Format)
	}
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	if _, err := LoadImageInfo(NewImageCache(0), "/nonexistent/image.png"); err == nil {
		t.Error("LoadImageInfo should fail for non-existent file")
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"scan.png", true},
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"old.bmp", true},
		{"fax.tiff", true},
		{"notes.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsSupported(tt.path); got != tt.want {
			t.Errorf("IsSupported(%q): got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestOpen_BMP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 12, 7))
	for i := range img.Pix {
		img.Pix[i] = 200
	}

	path := filepath.Join(t.TempDir(), "page.bmp")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := bmp.Encode(f, img); err != nil {
		t.Fatalf("failed to encode bmp: %v", err)
	}
	f.Close()

	loaded, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if loaded.Bounds().Dx() != 12 || loaded.Bounds().Dy() != 7 {
		t.Errorf("dimensions: got %v, want 12x7", loaded.Bounds())
	}
}
