package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // Register BMP format decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrNotImage is returned when input bytes are not a decodable image.
var ErrNotImage = errors.New("not a decodable image")

// PNGMimeType is the MIME type of every image this package encodes.
const PNGMimeType = "image/png"

// Decode reads an image from r and reports its format name.
//
// Parameters:
//   - r: Source of the encoded image. It is read to the end.
//
// Returns:
//   - image.Image: The decoded image, rotated upright when the file carries an
//     EXIF orientation tag.
//   - string: The registered format name ("png", "jpeg", "gif", "webp", "bmp",
//     "tiff").
//   - error: Wraps ErrNotImage if the data is empty or not a supported image;
//     otherwise the read error.
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode for data already in memory.
func DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrNotImage)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return img, format, nil
}

// ToNRGBA copies img into a zero-origin *image.NRGBA with every alpha value
// set to 255. NRGBA sources keep their stored colour channels; other models
// are converted first, so fully transparent pixels of those become black.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := range b.Dy() {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:], src.Pix[off:off+b.Dx()*4])
		}
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// EncodePNGBase64 returns img as a standard base64 encoded PNG.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
