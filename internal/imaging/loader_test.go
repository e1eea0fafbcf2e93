package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage writes a solid-colour PNG into the test's temp dir and
// returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "test-image.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.Len() != 0 {
		t.Errorf("new cache holds %d images, want 0", cache.Len())
	}
}

func TestImageCache_Load(t *testing.T) {
	path := createTestImage(t, 100, 50, color.RGBA{255, 0, 0, 255})
	cache := NewImageCache()

	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	// Second load must come from the cache even after the file is gone.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	again, err := cache.Load(path)
	if err != nil {
		t.Fatalf("cached Load failed: %v", err)
	}
	if again != img {
		t.Error("expected the cached image instance")
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	_, err := cache.Load("/nonexistent/path/image.png")
	if err == nil {
		t.Fatal("expected error for non-existent file")
	}
	if errors.Is(err, ErrNotImage) {
		t.Error("a missing file must not be reported as ErrNotImage")
	}
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-an-image.png")
	if err := os.WriteFile(path, []byte("this is not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := NewImageCache()
	_, err := cache.Load(path)
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if cache.Len() != 0 {
		t.Error("failed loads must not be cached")
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache()
	p1 := createTestImage(t, 10, 10, color.White)
	p2 := createTestImage(t, 20, 20, color.Black)

	for _, p := range []string{p1, p2} {
		if _, err := cache.Load(p); err != nil {
			t.Fatal(err)
		}
	}

	cache.Evict(p1)
	cache.Evict("/never/loaded.png")
	if cache.Len() != 1 {
		t.Errorf("after Evict: %d images, want 1", cache.Len())
	}

	if n := cache.Clear(); n != 1 {
		t.Errorf("Clear dropped %d images, want 1", n)
	}
	if cache.Len() != 0 {
		t.Errorf("after Clear: %d images, want 0", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	path := createTestImage(t, 50, 50, color.RGBA{0, 0, 255, 255})
	cache := NewImageCache()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				cache.Clear()
			}
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load failed: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	path := createTestImage(t, 64, 32, color.RGBA{10, 20, 30, 255})
	info, err := LoadImageInfo(NewImageCache(), path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 64 || info.Height != 32 {
		t.Errorf("expected 64x32, got %dx%d", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("expected format png, got %q", info.Format)
	}
	if info.ColorDepth != "8-bit" {
		t.Errorf("expected 8-bit, got %q", info.ColorDepth)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("expected positive file size, got %d", info.FileSizeBytes)
	}
}

func TestLoadImageInfo_FormatFromContents(t *testing.T) {
	// A JPEG saved with a .png extension is still reported as jpeg.
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	path := filepath.Join(t.TempDir(), "mislabelled.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	info, err := LoadImageInfo(NewImageCache(), path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}
	if info.Format != "jpeg" {
		t.Errorf("expected jpeg, got %q", info.Format)
	}
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	if _, err := LoadImageInfo(NewImageCache(), "/nonexistent/image.png"); err == nil {
		t.Error("expected error for non-existent file")
	}
}
