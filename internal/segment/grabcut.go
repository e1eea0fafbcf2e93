package segment

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// errEmptySide means one of the two labels has no pixels left to learn from.
var errEmptySide = errors.New("no samples for colour model")

// grabCut refines the probable labels of mask in place using img's colours.
func (s *Segmenter) grabCut(img *image.NRGBA, mask *Mask) error {
	px := pixelSamples(img, mask.W, mask.H)
	smooth := newSmoothness(px, mask.W, mask.H, s.opts.Gamma)
	lambda := 8*s.opts.Gamma + 1

	fg, bg, err := s.fitModels(px, mask, nil, nil)
	if err != nil {
		if errors.Is(err, errEmptySide) {
			return fmt.Errorf("%w: region of interest holds a single label", ErrDegenerateSeed)
		}
		return err
	}

	n := len(px)
	for iter := range s.opts.Iterations {
		if iter > 0 {
			nfg, nbg, err := s.fitModels(px, mask, fg, bg)
			if errors.Is(err, errEmptySide) {
				// the previous cut removed one side entirely; keep it
				break
			}
			if err != nil {
				return err
			}
			fg, bg = nfg, nbg
		}

		g := newGraph(n, 2*(n+4*n))
		for i, l := range mask.Labels {
			var src, snk float64
			switch l {
			case Background:
				snk = lambda
			case Foreground:
				src = lambda
			default:
				src = -bg.logLikelihood(px[i])
				snk = -fg.logLikelihood(px[i])
			}
			if !finite(src) || !finite(snk) {
				return fmt.Errorf("%w: non-finite likelihood at pixel %d", ErrNumerical, i)
			}
			g.addTerminal(i, src, snk)
		}
		smooth.addTo(g)
		g.maxFlow()

		for i, l := range mask.Labels {
			if l.IsDefinite() {
				continue
			}
			if g.inSourceSegment(i) {
				mask.Labels[i] = ProbableForeground
			} else {
				mask.Labels[i] = ProbableBackground
			}
		}
	}
	return nil
}

// fitModels learns foreground and background mixtures from the current
// labels. With nil previous models components are seeded by k-means,
// otherwise each pixel is assigned to its most likely previous component.
func (s *Segmenter) fitModels(px []sample, mask *Mask, prevFG, prevBG *gmm) (*gmm, *gmm, error) {
	var fgs, bgs []sample
	for i, l := range mask.Labels {
		if l.IsForeground() {
			fgs = append(fgs, px[i])
		} else {
			bgs = append(bgs, px[i])
		}
	}
	if len(fgs) == 0 || len(bgs) == 0 {
		return nil, nil, errEmptySide
	}
	fg, err := fitModel(fgs, prevFG, s.opts.Components)
	if err != nil {
		return nil, nil, fmt.Errorf("foreground model: %w", err)
	}
	bg, err := fitModel(bgs, prevBG, s.opts.Components)
	if err != nil {
		return nil, nil, fmt.Errorf("background model: %w", err)
	}
	return fg, bg, nil
}

func fitModel(samples []sample, prev *gmm, k int) (*gmm, error) {
	if prev == nil {
		assign, err := initialAssignment(samples, k)
		if err != nil {
			return nil, err
		}
		return fitGMM(samples, assign, k)
	}
	assign := make([]int, len(samples))
	for i, sm := range samples {
		assign[i] = prev.nearest(sm)
	}
	return fitGMM(samples, assign, len(prev.comps))
}

func pixelSamples(img *image.NRGBA, w, h int) []sample {
	px := make([]sample, 0, w*h)
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := range w {
			px = append(px, sample{float64(row[x*4]), float64(row[x*4+1]), float64(row[x*4+2])})
		}
	}
	return px
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// smoothness holds the n-link weights between each pixel and its left,
// upper-left, upper and upper-right neighbours.
type smoothness struct {
	w, h                      int
	left, upLeft, up, upRight []float64
}

func newSmoothness(px []sample, w, h int, gamma float64) *smoothness {
	sm := &smoothness{
		w:       w,
		h:       h,
		left:    make([]float64, w*h),
		upLeft:  make([]float64, w*h),
		up:      make([]float64, w*h),
		upRight: make([]float64, w*h),
	}

	var total float64
	var count int
	sm.each(func(i, j int, _ *float64) {
		total += sqDiff(px[i], px[j])
		count++
	})
	beta := 0.0
	if count > 0 && total > 0 {
		beta = 1 / (2 * total / float64(count))
	}

	diag := gamma / math.Sqrt2
	for y := range h {
		for x := range w {
			i := y*w + x
			if x > 0 {
				sm.left[i] = gamma * math.Exp(-beta*sqDiff(px[i], px[i-1]))
			}
			if y > 0 {
				sm.up[i] = gamma * math.Exp(-beta*sqDiff(px[i], px[i-w]))
				if x > 0 {
					sm.upLeft[i] = diag * math.Exp(-beta*sqDiff(px[i], px[i-w-1]))
				}
				if x < w-1 {
					sm.upRight[i] = diag * math.Exp(-beta*sqDiff(px[i], px[i-w+1]))
				}
			}
		}
	}
	return sm
}

// each calls fn for every neighbour pair (i, j) with the weight slot of the
// link.
func (sm *smoothness) each(fn func(i, j int, weight *float64)) {
	w := sm.w
	for y := range sm.h {
		for x := range w {
			i := y*w + x
			if x > 0 {
				fn(i, i-1, &sm.left[i])
			}
			if y > 0 {
				if x > 0 {
					fn(i, i-w-1, &sm.upLeft[i])
				}
				fn(i, i-w, &sm.up[i])
				if x < w-1 {
					fn(i, i-w+1, &sm.upRight[i])
				}
			}
		}
	}
}

func (sm *smoothness) addTo(g *graph) {
	sm.each(func(i, j int, weight *float64) {
		if *weight > flowEpsilon {
			g.addEdge(i, j, *weight, *weight)
		}
	})
}

func sqDiff(a, b sample) float64 {
	d0, d1, d2 := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return d0*d0 + d1*d1 + d2*d2
}
