// Package pipeline turns an image into the palette of its subject.
//
// A Pipeline runs three stages in order: foreground segmentation, colour
// clustering over the segmented pixels, and perceptual deduplication of the
// cluster centres. It is built once from configuration, holds no mutable
// state, and may be used from many goroutines.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/ironsheep/subject-palette/internal/config"
	"github.com/ironsheep/subject-palette/internal/extract"
	"github.com/ironsheep/subject-palette/internal/palette"
	"github.com/ironsheep/subject-palette/internal/segment"
)

// Result is the outcome of Process.
type Result struct {
	// Segmented has the input's dimensions; background pixels are black.
	Segmented *image.NRGBA
	// Palette holds the distinct subject colours in discovery order.
	Palette []palette.Color
	// Refined is false when segmentation fell back to the original image.
	Refined bool
	// FallbackReason explains a segmentation fallback.
	FallbackReason string
	// ForegroundRatio is the share of non-black pixels in Segmented.
	ForegroundRatio float64
	// EmptyForeground is set when no pixel survived segmentation and the
	// palette is therefore empty.
	EmptyForeground bool
}

// Pipeline wires the segmenter, extractor and deduplicator together.
type Pipeline struct {
	segmenter *segment.Segmenter
	extractor *extract.Extractor
	threshold float64
	maxK      int
	logger    *slog.Logger
}

// New assembles a Pipeline from its stages. A nil logger uses slog.Default.
func New(seg *segment.Segmenter, ex *extract.Extractor, threshold float64, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	maxK := config.MaxClusters
	if m := ex.Algorithm.MaxK(); m > 0 {
		maxK = min(maxK, m)
	}
	return &Pipeline{
		segmenter: seg,
		extractor: ex,
		threshold: threshold,
		maxK:      maxK,
		logger:    logger,
	}
}

// MaxClusters is the largest cluster count Process accepts.
func (p *Pipeline) MaxClusters() int {
	return p.maxK
}

// FromConfig builds a Pipeline from validated configuration.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Pipeline {
	sc := cfg.Segmenter
	seg := segment.New(segment.Options{
		Threshold:  uint8(sc.Threshold),
		Margin:     sc.Margin,
		Iterations: sc.Iterations,
		Components: sc.Components,
		Gamma:      sc.Gamma,
		MaxSide:    sc.MaxSide,
	})

	ec := cfg.Extractor
	ex := extract.New()
	ex.K = ec.K
	ex.Seed = ec.Seed
	ex.MaxSamples = ec.MaxSamples
	ex.Algorithm = extract.Algorithm(ec.Algorithm)
	ex.MaxIterations = ec.MaxIterations

	return New(seg, ex, cfg.Palette.Threshold, logger)
}

type settings struct {
	k         int
	threshold float64
}

// Option overrides a pipeline default for one call.
type Option func(*settings)

// WithClusterCount sets the number of colours to cluster.
func WithClusterCount(k int) Option {
	return func(s *settings) { s.k = k }
}

// WithThreshold sets the deduplication distance.
func WithThreshold(t float64) Option {
	return func(s *settings) { s.threshold = t }
}

// Segment runs only the segmentation stage.
func (p *Pipeline) Segment(img image.Image) segment.Segmentation {
	seg := p.segmenter.Segment(img)
	if !seg.Refined() {
		b := img.Bounds()
		p.logger.Debug("segmentation fell back to original image",
			"width", b.Dx(),
			"height", b.Dy(),
			"reason", seg.Err)
	}
	return seg
}

// Process segments img, clusters the remaining pixels and deduplicates the
// resulting colours.
func (p *Pipeline) Process(img image.Image, opts ...Option) (*Result, error) {
	s := settings{k: p.extractor.K, threshold: p.threshold}
	for _, opt := range opts {
		opt(&s)
	}
	if s.k <= 0 || s.k > p.maxK {
		return nil, fmt.Errorf("cluster count must be in 1-%d, got %d", p.maxK, s.k)
	}
	if math.IsNaN(s.threshold) || s.threshold < 0 {
		return nil, fmt.Errorf("threshold must be a non-negative number, got %g", s.threshold)
	}

	seg := p.Segment(img)
	res := &Result{
		Segmented:       seg.Image,
		Refined:         seg.Refined(),
		ForegroundRatio: foregroundRatio(seg.Image),
	}
	if seg.Err != nil {
		res.FallbackReason = seg.Err.Error()
	}

	colors, err := p.extractor.WithK(s.k).Extract(seg.Image)
	switch {
	case errors.Is(err, extract.ErrEmptyForeground):
		p.logger.Debug("no foreground pixels after segmentation")
		res.Palette = []palette.Color{}
		res.EmptyForeground = true
		return res, nil
	case err != nil:
		return nil, fmt.Errorf("extracting colors: %w", err)
	}

	res.Palette = palette.Dedupe(colors, s.threshold)
	p.logger.Debug("palette extracted",
		"clusters", len(colors),
		"colors", len(res.Palette),
		"refined", res.Refined)
	return res, nil
}

func foregroundRatio(img *image.NRGBA) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	return float64(extract.CountForeground(img)) / float64(total)
}
