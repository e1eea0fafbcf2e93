package segment

import (
	"image"

	bildsegment "github.com/anthonynsimon/bild/segment"
)

// Label classifies a single mask pixel.
type Label uint8

const (
	Background Label = iota
	Foreground
	ProbableBackground
	ProbableForeground
)

// IsForeground reports whether l is either foreground variant.
func (l Label) IsForeground() bool {
	return l == Foreground || l == ProbableForeground
}

// IsDefinite reports whether refinement must leave l untouched.
func (l Label) IsDefinite() bool {
	return l == Background || l == Foreground
}

func (l Label) String() string {
	switch l {
	case Background:
		return "background"
	case Foreground:
		return "foreground"
	case ProbableBackground:
		return "probable-background"
	case ProbableForeground:
		return "probable-foreground"
	default:
		return "unknown"
	}
}

// Mask is a per-pixel label grid in row-major order.
type Mask struct {
	W, H   int
	Labels []Label
}

// NewMask returns a w×h mask with every pixel labelled Background.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Labels: make([]Label, w*h)}
}

// At returns the label at (x, y).
func (m *Mask) At(x, y int) Label {
	return m.Labels[y*m.W+x]
}

// Set labels (x, y).
func (m *Mask) Set(x, y int, l Label) {
	m.Labels[y*m.W+x] = l
}

// Count returns the number of pixels carrying label l.
func (m *Mask) Count(l Label) int {
	n := 0
	for _, v := range m.Labels {
		if v == l {
			n++
		}
	}
	return n
}

// Coverage returns the share of pixels labelled as either foreground variant.
func (m *Mask) Coverage() float64 {
	if len(m.Labels) == 0 {
		return 0
	}
	n := 0
	for _, v := range m.Labels {
		if v.IsForeground() {
			n++
		}
	}
	return float64(n) / float64(len(m.Labels))
}

// Apply returns a copy of img where background pixels are opaque black and
// foreground pixels keep their colour. img must be m.W×m.H.
func (m *Mask) Apply(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, m.W, m.H))
	for y := range m.H {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		src := img.Pix[off : off+m.W*4]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+m.W*4]
		for x := range m.W {
			if m.Labels[y*m.W+x].IsForeground() {
				copy(row[x*4:x*4+4], src[x*4:x*4+4])
				continue
			}
			row[x*4+3] = 0xff
		}
	}
	return dst
}

// Resize returns the mask scaled to w×h by nearest-neighbour sampling, so no
// new labels are introduced.
func (m *Mask) Resize(w, h int) *Mask {
	if w == m.W && h == m.H {
		return &Mask{W: w, H: h, Labels: append([]Label(nil), m.Labels...)}
	}
	out := NewMask(w, h)
	for y := range h {
		sy := min(y*m.H/h, m.H-1)
		for x := range w {
			sx := min(x*m.W/w, m.W-1)
			out.Labels[y*w+x] = m.Labels[sy*m.W+sx]
		}
	}
	return out
}

// SeedMask thresholds img at level: pixels whose luminance rank is at least
// level become Foreground, the rest Background.
func SeedMask(img image.Image, level uint8) *Mask {
	gray := bildsegment.Threshold(img, level)
	b := gray.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := range m.H {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+m.W]
		for x, v := range row {
			if v != 0 {
				m.Labels[y*m.W+x] = Foreground
			}
		}
	}
	return m
}

// relax copies the mask, forcing everything outside the inset rectangle to
// Background and turning definite labels inside it into probable ones.
func (m *Mask) relax(margin int) *Mask {
	out := NewMask(m.W, m.H)
	for y := margin; y < m.H-margin; y++ {
		for x := margin; x < m.W-margin; x++ {
			i := y*m.W + x
			if m.Labels[i].IsForeground() {
				out.Labels[i] = ProbableForeground
			} else {
				out.Labels[i] = ProbableBackground
			}
		}
	}
	return out
}
