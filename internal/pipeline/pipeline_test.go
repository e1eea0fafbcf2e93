package pipeline

import (
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/subject-palette/internal/config"
	"github.com/ironsheep/subject-palette/internal/extract"
	"github.com/ironsheep/subject-palette/internal/palette"
	"github.com/ironsheep/subject-palette/internal/segment"
)

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func newImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), c)
	return img
}

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := config.Default()
	require.NoError(t, config.Validate(cfg))
	return FromConfig(cfg, nil)
}

func TestProcess_BrightSubjectOnBlack(t *testing.T) {
	img := newImage(60, 60, color.NRGBA{0, 0, 0, 255})
	fill(img, image.Rect(20, 20, 40, 40), color.NRGBA{230, 200, 60, 255})

	res, err := newPipeline(t).Process(img)
	require.NoError(t, err)

	assert.True(t, res.Refined)
	assert.Empty(t, res.FallbackReason)
	assert.False(t, res.EmptyForeground)
	assert.Equal(t, []palette.Color{{R: 230, G: 200, B: 60}}, res.Palette)
	assert.InDelta(t, 400.0/3600.0, res.ForegroundRatio, 1e-9)
	assert.Equal(t, img.Bounds().Size(), res.Segmented.Bounds().Size())
}

func TestProcess_UniformGrayFallsBack(t *testing.T) {
	img := newImage(40, 40, color.NRGBA{100, 100, 100, 255})

	res, err := newPipeline(t).Process(img)
	require.NoError(t, err)

	assert.False(t, res.Refined)
	assert.Contains(t, res.FallbackReason, segment.ErrDegenerateSeed.Error())
	assert.Equal(t, img.Pix, res.Segmented.Pix)
	assert.Equal(t, []palette.Color{{R: 100, G: 100, B: 100}}, res.Palette)
	assert.InDelta(t, 1.0, res.ForegroundRatio, 1e-12)
}

// Images narrower than twice the margin skip refinement, so every band
// reaches the extractor.
func TestProcess_ThreeDistinctRegions(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 18, 6))
	fill(img, image.Rect(0, 0, 6, 6), color.NRGBA{220, 20, 20, 255})
	fill(img, image.Rect(6, 0, 12, 6), color.NRGBA{20, 200, 40, 255})
	fill(img, image.Rect(12, 0, 18, 6), color.NRGBA{30, 40, 230, 255})

	p := newPipeline(t)
	res, err := p.Process(img, WithClusterCount(3))
	require.NoError(t, err)

	assert.False(t, res.Refined)
	assert.Contains(t, res.FallbackReason, segment.ErrDegenerateROI.Error())
	assert.ElementsMatch(t, []palette.Color{
		{R: 220, G: 20, B: 20},
		{R: 20, G: 200, B: 40},
		{R: 30, G: 40, B: 230},
	}, res.Palette)

	// Deduplication keeps the extractor's order.
	clustered, err := p.extractor.WithK(3).Extract(res.Segmented)
	require.NoError(t, err)
	assert.Equal(t, clustered, res.Palette)
}

func TestProcess_NearIdenticalColorsCollapse(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 12, 6))
	fill(img, image.Rect(0, 0, 6, 6), color.NRGBA{120, 60, 200, 255})
	fill(img, image.Rect(6, 0, 12, 6), color.NRGBA{122, 61, 198, 255})

	res, err := newPipeline(t).Process(img, WithClusterCount(2))
	require.NoError(t, err)
	assert.Len(t, res.Palette, 1)

	// a zero threshold keeps both centres
	res, err = newPipeline(t).Process(img, WithClusterCount(2), WithThreshold(0))
	require.NoError(t, err)
	assert.Len(t, res.Palette, 2)
}

func TestProcess_EmptyForeground(t *testing.T) {
	img := newImage(30, 30, color.NRGBA{0, 0, 0, 255})

	res, err := newPipeline(t).Process(img)
	require.NoError(t, err)
	assert.True(t, res.EmptyForeground)
	assert.NotNil(t, res.Palette)
	assert.Empty(t, res.Palette)
	assert.Zero(t, res.ForegroundRatio)
}

func TestProcess_InvalidOptions(t *testing.T) {
	img := newImage(10, 10, color.NRGBA{50, 60, 70, 255})
	p := newPipeline(t)

	_, err := p.Process(img, WithClusterCount(0))
	assert.Error(t, err)

	_, err = p.Process(img, WithClusterCount(config.MaxClusters+1))
	assert.ErrorContains(t, err, "cluster count")

	_, err = p.Process(img, WithThreshold(-1))
	assert.Error(t, err)

	_, err = p.Process(img, WithThreshold(math.NaN()))
	assert.ErrorContains(t, err, "threshold")
}

func TestPipeline_MaxClusters(t *testing.T) {
	assert.Equal(t, config.MaxClusters, newPipeline(t).MaxClusters())

	cfg := config.Default()
	cfg.Extractor.Algorithm = string(extract.AlgorithmMuesli)
	require.NoError(t, config.Validate(cfg))
	p := FromConfig(cfg, nil)
	assert.Equal(t, 1, p.MaxClusters())

	img := newImage(10, 10, color.NRGBA{50, 60, 70, 255})
	res, err := p.Process(img)
	require.NoError(t, err)
	assert.Equal(t, []palette.Color{{R: 50, G: 60, B: 70}}, res.Palette)

	_, err = p.Process(img, WithClusterCount(2))
	assert.ErrorContains(t, err, "cluster count")
}

func TestProcess_ConcurrentCallsAgree(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 4), uint8(255 - y*4), uint8(x * y % 256), 255})
		}
	}
	p := newPipeline(t)
	want, err := p.Process(img, WithClusterCount(4))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = p.Process(img, WithClusterCount(4))
		}()
	}
	wg.Wait()

	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, want.Palette, got.Palette)
		assert.Equal(t, want.Segmented.Pix, got.Segmented.Pix)
	}
}
