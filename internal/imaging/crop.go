package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrNoSubject is returned by CropToSubject when every pixel is background.
var ErrNoSubject = errors.New("image has no foreground pixels")

// CropResult contains the cropped image data
type CropResult struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// SubjectBounds returns the smallest rectangle holding every pixel of a
// segmented image that is not pure black.
func SubjectBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	found := image.Rectangle{}
	ok := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := img.Pix[off : off+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			if row[i] == 0 && row[i+1] == 0 && row[i+2] == 0 {
				continue
			}
			p := image.Rect(b.Min.X+i/4, y, b.Min.X+i/4+1, y+1)
			if !ok {
				found, ok = p, true
				continue
			}
			found = found.Union(p)
		}
	}
	return found, ok
}

// CropToSubject crops a segmented image to its subject's bounding box grown
// by padding pixels on every side, clamped to the image.
func CropToSubject(img *image.NRGBA, padding int) (*CropResult, error) {
	if padding < 0 {
		return nil, fmt.Errorf("padding must not be negative, got %d", padding)
	}
	rect, ok := SubjectBounds(img)
	if !ok {
		return nil, ErrNoSubject
	}
	rect = image.Rect(rect.Min.X-padding, rect.Min.Y-padding, rect.Max.X+padding, rect.Max.Y+padding).
		Intersect(img.Bounds())

	cropped := imaging.Crop(img, rect)
	encoded, err := EncodePNGBase64(cropped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X:           rect.Min.X,
		Y:           rect.Min.Y,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    PNGMimeType,
	}, nil
}
