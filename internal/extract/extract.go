// Package extract finds the representative colours of a segmented image.
//
// Background pixels (exactly black) are ignored. The remaining pixels are
// clustered in RGB space and each cluster centre becomes one colour.
package extract

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/ironsheep/subject-palette/internal/cluster"
	"github.com/ironsheep/subject-palette/internal/palette"
)

// ErrEmptyForeground is returned when every pixel of the image is background.
var ErrEmptyForeground = errors.New("no foreground pixels to cluster")

// ErrUnseeded is returned when AlgorithmMuesli is asked for more clusters
// than it can produce reproducibly.
var ErrUnseeded = errors.New("algorithm cannot be seeded for more than one cluster")

// Algorithm names a clustering implementation.
type Algorithm string

const (
	// AlgorithmLloyd is seeded k-means++ with Lloyd refinement. Reproducible.
	AlgorithmLloyd Algorithm = "lloyd"

	// AlgorithmMuesli uses github.com/muesli/kmeans. Its initial centres come
	// from the clock, so it is limited to a single cluster, whose centre is
	// the mean whatever the seed.
	AlgorithmMuesli Algorithm = "muesli"
)

// ValidAlgorithms returns the supported algorithm names.
func ValidAlgorithms() []Algorithm {
	return []Algorithm{AlgorithmLloyd, AlgorithmMuesli}
}

// IsValidAlgorithm reports whether alg is supported.
func IsValidAlgorithm(alg Algorithm) bool {
	return slices.Contains(ValidAlgorithms(), alg)
}

// MaxK returns the largest cluster count alg yields reproducibly, or 0 when
// it has no limit.
func (alg Algorithm) MaxK() int {
	if alg == AlgorithmMuesli {
		return 1
	}
	return 0
}

// Default settings.
const (
	DefaultK          = 1
	DefaultMaxSamples = 50000
)

// Extractor clusters foreground pixels. The zero value is not usable; call
// New. An Extractor is never modified by Extract and may be shared.
type Extractor struct {
	// K is the number of colours requested.
	K int
	// Seed drives AlgorithmLloyd's initialisation.
	Seed int64
	// MaxSamples caps the pixels handed to clustering. Zero keeps all.
	MaxSamples int
	// Algorithm selects the clustering implementation.
	Algorithm Algorithm
	// MaxIterations caps AlgorithmLloyd's refinement.
	MaxIterations int
}

// New returns an Extractor with the default settings.
func New() *Extractor {
	return &Extractor{
		K:             DefaultK,
		Seed:          cluster.DefaultSeed,
		MaxSamples:    DefaultMaxSamples,
		Algorithm:     AlgorithmLloyd,
		MaxIterations: 300,
	}
}

// WithK returns a copy of e requesting k colours.
func (e *Extractor) WithK(k int) *Extractor {
	c := *e
	c.K = k
	return &c
}

// Extract returns up to K colours in the order the clustering reports them.
// K is clamped to the number of sampled pixels.
func (e *Extractor) Extract(img image.Image) ([]palette.Color, error) {
	if e.K <= 0 {
		return nil, fmt.Errorf("cluster count must be positive, got %d", e.K)
	}
	px := Subsample(ForegroundPixels(img), e.MaxSamples)
	if len(px) == 0 {
		return nil, ErrEmptyForeground
	}
	k := min(e.K, len(px))

	switch e.Algorithm {
	case AlgorithmLloyd, "":
		return e.lloyd(px, k)
	case AlgorithmMuesli:
		if k > AlgorithmMuesli.MaxK() {
			return nil, fmt.Errorf("%w: %s with k=%d", ErrUnseeded, e.Algorithm, k)
		}
		return muesli(px, k)
	default:
		return nil, fmt.Errorf("unknown algorithm: %s (valid algorithms: %v)", e.Algorithm, ValidAlgorithms())
	}
}

func (e *Extractor) lloyd(px []palette.Color, k int) ([]palette.Color, error) {
	obs := make(clusters.Observations, len(px))
	for i, c := range px {
		obs[i] = clusters.Coordinates{float64(c.R), float64(c.G), float64(c.B)}
	}
	cc, err := cluster.KMeans(obs, k, cluster.Options{Seed: e.Seed, MaxIterations: e.MaxIterations})
	if err != nil {
		return nil, fmt.Errorf("clustering pixels: %w", err)
	}
	return centers(cc, 1), nil
}

func muesli(px []palette.Color, k int) ([]palette.Color, error) {
	obs := make(clusters.Observations, len(px))
	for i, c := range px {
		obs[i] = clusters.Coordinates{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
	}
	cc, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("clustering pixels: %w", err)
	}
	// Partition skips recentering when the first assignment is already
	// stable, which always happens for k == 1.
	cc.Recenter()
	return centers(cc, 255), nil
}

func centers(cc clusters.Clusters, scale float64) []palette.Color {
	out := make([]palette.Color, 0, len(cc))
	for _, c := range cc {
		out = append(out, palette.FromFloat(c.Center[0]*scale, c.Center[1]*scale, c.Center[2]*scale))
	}
	return out
}

// ForegroundPixels returns every pixel of img whose channel sum is above
// zero, in raster order.
func ForegroundPixels(img image.Image) []palette.Color {
	b := img.Bounds()
	out := make([]palette.Color, 0, b.Dx()*b.Dy())
	eachForeground(img, func(c palette.Color) {
		out = append(out, c)
	})
	return out
}

// CountForeground returns len(ForegroundPixels(img)) without collecting
// the pixels.
func CountForeground(img image.Image) int {
	n := 0
	eachForeground(img, func(palette.Color) {
		n++
	})
	return n
}

func eachForeground(img image.Image, fn func(palette.Color)) {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := n.PixOffset(b.Min.X, y)
			row := n.Pix[off : off+b.Dx()*4]
			for x := 0; x < len(row); x += 4 {
				if row[x] == 0 && row[x+1] == 0 && row[x+2] == 0 {
					continue
				}
				fn(palette.Color{R: row[x], G: row[x+1], B: row[x+2]})
			}
		}
		return
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := palette.FromColor(img.At(x, y)); !c.IsZero() {
				fn(c)
			}
		}
	}
}

// Subsample keeps every n-th pixel so at most limit remain. A non-positive
// limit keeps everything.
func Subsample(px []palette.Color, limit int) []palette.Color {
	if limit <= 0 || len(px) <= limit {
		return px
	}
	step := (len(px) + limit - 1) / limit
	out := make([]palette.Color, 0, limit)
	for i := 0; i < len(px); i += step {
		out = append(out, px[i])
	}
	return out
}
