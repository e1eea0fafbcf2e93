// Package cluster partitions observations with a reproducible k-means.
//
// The observation and cluster types come from github.com/muesli/clusters so
// callers can switch between this implementation and github.com/muesli/kmeans
// without converting data. Unlike kmeans.Kmeans, which seeds from the clock,
// KMeans draws every random choice from a source seeded with Options.Seed and
// returns identical clusters for identical input.
package cluster

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/muesli/clusters"
)

// DefaultSeed is the seed used when Options.Seed is zero.
const DefaultSeed int64 = 42

// ErrNoObservations is returned when there is nothing to cluster.
var ErrNoObservations = errors.New("no observations to cluster")

// Options tunes KMeans. The zero value is usable.
type Options struct {
	// Seed for centroid initialisation. Zero means DefaultSeed.
	Seed int64
	// MaxIterations caps the Lloyd refinement. Zero means 300.
	MaxIterations int
	// Tolerance stops refinement once no centroid moves by more than this
	// (squared distance). Zero means 1e-4.
	Tolerance float64
}

func (o Options) withDefaults() Options {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 300
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-4
	}
	return o
}

// KMeans partitions points into at most k clusters.
//
// Centroids are seeded with k-means++ and refined with Lloyd iterations. k is
// clamped to len(points). Clusters are returned in seeding order; a cluster
// that loses all its points keeps its last center.
func KMeans(points clusters.Observations, k int, opts Options) (clusters.Clusters, error) {
	if len(points) == 0 {
		return nil, ErrNoObservations
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0, got %d", k)
	}
	k = min(k, len(points))
	opts = opts.withDefaults()

	rng := rand.New(rand.NewSource(opts.Seed))
	cc := seedPlusPlus(points, k, rng)

	for range opts.MaxIterations {
		cc.Reset()
		for _, p := range points {
			ci := cc.Nearest(p)
			cc[ci].Append(p)
		}

		moved := 0.0
		for i := range cc {
			prev := cc[i].Center
			cc[i].Recenter()
			moved = max(moved, prev.Distance(cc[i].Center))
		}
		if moved <= opts.Tolerance {
			break
		}
	}
	return cc, nil
}

// Assign returns, for every point, the index of its nearest cluster.
func Assign(cc clusters.Clusters, points clusters.Observations) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = cc.Nearest(p)
	}
	return out
}

// seedPlusPlus picks k initial centers: the first uniformly, each following
// one with probability proportional to its squared distance from the nearest
// center already chosen.
func seedPlusPlus(points clusters.Observations, k int, rng *rand.Rand) clusters.Clusters {
	cc := make(clusters.Clusters, 0, k)
	cc = append(cc, clusters.Cluster{Center: copyCoords(points[rng.Intn(len(points))])})

	d2 := make([]float64, len(points))
	for len(cc) < k {
		total := 0.0
		last := -1
		for i, p := range points {
			d := p.Distance(cc[0].Center)
			for _, c := range cc[1:] {
				d = min(d, p.Distance(c.Center))
			}
			d2[i] = d
			total += d
			if d > 0 {
				last = i
			}
		}

		var next int
		if last < 0 {
			// every point sits on a center
			next = rng.Intn(len(points))
		} else {
			// rounding can leave target above zero after the loop; the
			// last point off every center absorbs it
			next = last
			target := rng.Float64() * total
			for i, d := range d2 {
				target -= d
				if target <= 0 && d > 0 {
					next = i
					break
				}
			}
		}
		cc = append(cc, clusters.Cluster{Center: copyCoords(points[next])})
	}
	return cc
}

func copyCoords(o clusters.Observation) clusters.Coordinates {
	return append(clusters.Coordinates(nil), o.Coordinates()...)
}
