package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"strings"
	"testing"
)

func TestDecode_Formats(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.SetNRGBA(1, 1, color.NRGBA{200, 100, 50, 255})

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatal(err)
	}
	var gifBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, src, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"png", pngBuf.Bytes(), "png"},
		{"gif", gifBuf.Bytes(), "gif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := Decode(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
				t.Errorf("unexpected size %v", img.Bounds())
			}
		})
	}
}

func TestDecode_NotImage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("plain text"), {0x89, 'P', 'N', 'G'}} {
		_, _, err := DecodeBytes(data)
		if !errors.Is(err, ErrNotImage) {
			t.Errorf("DecodeBytes(%q): expected ErrNotImage, got %v", data, err)
		}
	}
}

func TestToNRGBA(t *testing.T) {
	t.Run("nrgba keeps channels and forces alpha", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(2, 2, 4, 4))
		src.SetNRGBA(2, 2, color.NRGBA{10, 20, 30, 0})
		src.SetNRGBA(3, 3, color.NRGBA{40, 50, 60, 128})

		dst := ToNRGBA(src)
		if dst.Bounds() != image.Rect(0, 0, 2, 2) {
			t.Fatalf("bounds = %v, want zero origin", dst.Bounds())
		}
		if got := dst.NRGBAAt(0, 0); got != (color.NRGBA{10, 20, 30, 255}) {
			t.Errorf("pixel (0,0) = %v", got)
		}
		if got := dst.NRGBAAt(1, 1); got != (color.NRGBA{40, 50, 60, 255}) {
			t.Errorf("pixel (1,1) = %v", got)
		}
	})

	t.Run("other models are converted", func(t *testing.T) {
		src := image.NewGray(image.Rect(0, 0, 1, 1))
		src.SetGray(0, 0, color.Gray{77})

		if got := ToNRGBA(src).NRGBAAt(0, 0); got != (color.NRGBA{77, 77, 77, 255}) {
			t.Errorf("pixel = %v", got)
		}
	})

	t.Run("source is not modified", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		src.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})
		ToNRGBA(src).Pix[0] = 99
		if src.Pix[0] != 1 || src.Pix[3] != 4 {
			t.Error("ToNRGBA modified its input")
		}
	})
}

func TestEncodePNGBase64_RoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(2, 1, color.NRGBA{9, 8, 7, 255})

	s, err := EncodePNGBase64(src)
	if err != nil {
		t.Fatalf("EncodePNGBase64 failed: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("not valid base64: %v", err)
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		t.Fatal("payload is not a PNG")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(2, 1).RGBA()
	if r>>8 != 9 || g>>8 != 8 || b>>8 != 7 {
		t.Errorf("round-tripped pixel = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}
