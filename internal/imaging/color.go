package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/subject-palette/internal/palette"
)

// RGBColor represents an RGB color with 8-bit components (0-255).
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-359 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
//
// The same color is given in four formats:
//   - Hex: Compact string format for CSS/web usage
//   - RGB: Standard 8-bit components
//   - HSL: Hue/saturation/lightness for intuitive adjustments
//   - Lab: CIELAB, the space palette distances are measured in
type ColorResult struct {
	Hex   string      `json:"hex"`             // Hex format "#RRGGBB"
	RGB   RGBColor    `json:"rgb"`             // RGB components
	HSL   HSLColor    `json:"hsl"`             // HSL representation
	Lab   palette.Lab `json:"lab"`             // CIELAB (D65), L in 0-100
	Alpha *uint8      `json:"alpha,omitempty"` // Alpha of a sampled pixel (0-255)
}

// Describe returns c in every supported representation.
func Describe(c palette.Color) ColorResult {
	lab := c.Lab()
	return ColorResult{
		Hex: c.Hex(),
		RGB: RGBColor{R: c.R, G: c.G, B: c.B},
		HSL: toHSL(c),
		Lab: palette.Lab{L: round2(lab.L), A: round2(lab.A), B: round2(lab.B)},
	}
}

// DescribeAll describes each color of a palette, keeping order.
func DescribeAll(colors []palette.Color) []ColorResult {
	out := make([]ColorResult, len(colors))
	for i, c := range colors {
		out[i] = Describe(c)
	}
	return out
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Parameters:
//   - img: The source image to sample from.
//   - x: X coordinate (0-based, 0 = leftmost pixel).
//   - y: Y coordinate (0-based, 0 = topmost pixel).
//
// Returns:
//   - *ColorResult: The color at (x, y), including its alpha.
//   - error: Non-nil if coordinates are outside the image bounds.
//
// # Color Conversion
//
// The pixel is converted to non-premultiplied 8-bit components, so a
// half-transparent red reports R=255 with Alpha=128.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if !(image.Point{X: x, Y: y}).In(bounds) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	px := img.At(x, y)
	_, _, _, a := px.RGBA()
	alpha := uint8(a >> 8)

	res := Describe(palette.FromColor(px))
	res.Alpha = &alpha
	return &res, nil
}

// toHSL converts c to HSL with integer components.
func toHSL(c palette.Color) HSLColor {
	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, l := cf.Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return HSLColor{
		H: int(math.Round(h)) % 360,
		S: int(math.Round(s * 100)),
		L: int(math.Round(l * 100)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
