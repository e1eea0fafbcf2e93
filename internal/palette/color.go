package palette

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidHex is returned by ParseHex for strings that are not #RRGGBB or #RGB.
var ErrInvalidHex = errors.New("invalid hex color")

// Color is an opaque 8-bit sRGB color.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Lab is the CIELAB representation of a Color (D65, L in 0-100).
type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Black is the zero color. Segmented images use it for background pixels.
var Black = Color{}

// FromColor converts any color.Color, dropping alpha.
//
// The conversion un-premultiplies first, so a half-transparent red becomes
// full red rather than dark red.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B}
}

// FromFloat builds a Color from channel values in 0-255, rounding to the
// nearest integer and clamping.
func FromFloat(r, g, b float64) Color {
	return Color{R: clamp8(r), G: clamp8(g), B: clamp8(b)}
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// IsZero reports whether c is the background color (0,0,0).
func (c Color) IsZero() bool {
	return c == Black
}

// Hex returns "#RRGGBB".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// Lab converts c to CIELAB.
func (c Color) Lab() Lab {
	l, a, b := c.colorful().Lab()
	return Lab{L: l * 100, A: a * 100, B: b * 100}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// ParseHex parses "#RRGGBB", "RRGGBB", "#RGB" or "RGB".
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	var c Color
	if _, err := fmt.Sscanf(h, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return c, nil
}

// MarshalJSON encodes the color as [r, g, b].
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{int(c.R), int(c.G), int(c.B)})
}

// UnmarshalJSON accepts [r, g, b] with each channel in 0-255.
func (c *Color) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("color must be an [r,g,b] array: %w", err)
	}
	if len(v) != 3 {
		return fmt.Errorf("color must have 3 channels, got %d", len(v))
	}
	for i, ch := range v {
		if ch < 0 || ch > 255 {
			return fmt.Errorf("channel %d out of range: %d", i, ch)
		}
	}
	*c = Color{R: uint8(v[0]), G: uint8(v[1]), B: uint8(v[2])}
	return nil
}
