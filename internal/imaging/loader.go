package imaging

import (
	"fmt"
	"image"
	"os"
	"sync"
)

// cachedImage is a decoded file together with the format its decoder reported.
type cachedImage struct {
	img    image.Image
	format string
}

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// Once an image is loaded, subsequent Load calls for the same path return the
// cached copy without disk I/O. Images are stored exactly as decoded; callers
// that need the pipeline's opaque form convert with ToNRGBA.
//
// # Memory Management
//
// Cached images remain in memory until removed via Evict or Clear. The MCP
// server clears the cache on a cron schedule when cache.clear_schedule is
// configured.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/photo.jpg")
//	if err != nil {
//	    return err
//	}
//	cache.Evict("/path/to/photo.jpg") // Optional: free memory
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cachedImage
}

// NewImageCache creates an empty image cache ready for concurrent use.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cachedImage),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Parameters:
//   - path: Absolute or relative file path. The exact string is the cache key,
//     so different spellings of the same file are cached separately.
//
// Returns:
//   - image.Image: The decoded image, upright per its EXIF orientation.
//   - error: Non-nil if the file cannot be opened, or wraps ErrNotImage if its
//     contents are not a supported image.
func (c *ImageCache) Load(path string) (image.Image, error) {
	e, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return e.img, nil
}

func (c *ImageCache) load(path string) (cachedImage, error) {
	c.mu.RLock()
	if e, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return e, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := Decode(f)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	e := cachedImage{img: img, format: format}
	c.mu.Lock()
	c.images[path] = e
	c.mu.Unlock()

	return e, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache and returns how many were dropped.
func (c *ImageCache) Clear() int {
	c.mu.Lock()
	n := len(c.images)
	c.images = make(map[string]cachedImage)
	c.mu.Unlock()
	return n
}

// Evict removes a specific image from the cache by its path. Unknown paths
// are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder's format name, e.g. "png" or "jpeg".
	// Detection is based on file contents, not the extension.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the decoded colour model carries alpha.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through cache and describes it.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
//
// # Color Depth Detection
//
// Color depth is determined by the decoded Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	e, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch e.img.(type) {
	case *image.RGBA, *image.NRGBA, *image.Paletted:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := e.img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        e.format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}
