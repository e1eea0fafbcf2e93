package segment

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/ironsheep/subject-palette/internal/imaging"
)

// Sentinel errors carried by Segmentation.Err when refinement falls back.
var (
	// ErrDegenerateROI means the image is too small for the inset rectangle.
	ErrDegenerateROI = errors.New("region of interest is empty")
	// ErrDegenerateSeed means the seed mask cannot train both colour models.
	ErrDegenerateSeed = errors.New("seed mask does not contain both foreground and background")
	// ErrNumerical means refinement produced non-finite or singular values.
	ErrNumerical = errors.New("numerical failure during refinement")
)

// Options configures a Segmenter.
type Options struct {
	// Threshold is the luminance level (0-255) separating seed foreground
	// from seed background.
	Threshold uint8
	// Margin insets the region of interest from every image edge, in pixels.
	Margin int
	// Iterations is the number of refinement rounds.
	Iterations int
	// Components is the number of Gaussians per colour model.
	Components int
	// Gamma weights the smoothness term.
	Gamma float64
	// MaxSide bounds the longer side of the image refinement runs on.
	// Zero refines at full resolution.
	MaxSide int
}

// DefaultOptions returns the standard segmentation settings.
func DefaultOptions() Options {
	return Options{
		Threshold:  128,
		Margin:     10,
		Iterations: 5,
		Components: 5,
		Gamma:      50,
		MaxSide:    200,
	}
}

// Segmentation is the outcome of Segment.
type Segmentation struct {
	// Image has the input's dimensions. On fallback it is an unmodified copy
	// of the input.
	Image *image.NRGBA
	// Mask is the refined label grid at input resolution; nil on fallback.
	Mask *Mask
	// Err explains a fallback; nil when refinement succeeded.
	Err error
}

// Refined reports whether background removal was applied.
func (s Segmentation) Refined() bool {
	return s.Err == nil
}

// Segmenter removes the background around a single subject. It holds no
// mutable state and is safe for concurrent use.
type Segmenter struct {
	opts Options
}

// New returns a Segmenter. Non-positive Iterations, Components or Gamma take
// their default values.
func New(opts Options) *Segmenter {
	def := DefaultOptions()
	if opts.Iterations <= 0 {
		opts.Iterations = def.Iterations
	}
	if opts.Components <= 0 {
		opts.Components = def.Components
	}
	if opts.Gamma <= 0 {
		opts.Gamma = def.Gamma
	}
	opts.Margin = max(opts.Margin, 0)
	opts.MaxSide = max(opts.MaxSide, 0)
	return &Segmenter{opts: opts}
}

// Segment separates the subject of img from its background. It never fails:
// any refinement problem yields a copy of img and a non-nil Err.
func (s *Segmenter) Segment(img image.Image) Segmentation {
	src := imaging.ToNRGBA(img)
	mask, err := s.safeRefine(src)
	if err != nil {
		return Segmentation{Image: src, Err: err}
	}
	return Segmentation{Image: mask.Apply(src), Mask: mask}
}

func (s *Segmenter) safeRefine(src *image.NRGBA) (mask *Mask, err error) {
	defer func() {
		if r := recover(); r != nil {
			mask, err = nil, fmt.Errorf("%w: %v", ErrNumerical, r)
		}
	}()
	return s.refine(src)
}

func (s *Segmenter) refine(src *image.NRGBA) (*Mask, error) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w <= 2*s.opts.Margin || h <= 2*s.opts.Margin {
		return nil, fmt.Errorf("%w: %dx%d image with %dpx margin", ErrDegenerateROI, w, h, s.opts.Margin)
	}

	work, margin := s.workingImage(src)
	seed := SeedMask(work, s.opts.Threshold)
	if seed.Count(Foreground) == 0 || seed.Count(Background) == 0 {
		return nil, ErrDegenerateSeed
	}

	mask := seed.relax(margin)
	if err := s.grabCut(work, mask); err != nil {
		return nil, err
	}
	return mask.Resize(w, h), nil
}

// workingImage downscales src so its longer side is at most MaxSide and
// scales the margin with it.
func (s *Segmenter) workingImage(src *image.NRGBA) (*image.NRGBA, int) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	long := max(w, h)
	if s.opts.MaxSide == 0 || long <= s.opts.MaxSide {
		return src, s.opts.Margin
	}
	scale := float64(s.opts.MaxSide) / float64(long)
	ww := max(1, int(math.Round(float64(w)*scale)))
	wh := max(1, int(math.Round(float64(h)*scale)))
	small := imaging.ToNRGBA(resize.Resize(uint(ww), uint(wh), src, resize.Bilinear))

	margin := int(math.Round(float64(s.opts.Margin) * scale))
	if s.opts.Margin > 0 {
		margin = max(margin, 1)
	}
	return small, margin
}
