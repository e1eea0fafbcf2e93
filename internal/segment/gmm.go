package segment

import (
	"fmt"
	"math"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/subject-palette/internal/cluster"
)

const (
	// covariance regularisation added to the diagonal of a degenerate component
	covarianceFloor = 0.01
	detEpsilon      = 1e-12
	maxRegularise   = 8
)

var log2Pi = math.Log(2 * math.Pi)

type sample [3]float64

// component is one weighted multivariate Gaussian. inv and logNorm are
// precomputed so evaluation needs no matrix calls.
type component struct {
	weight  float64
	mean    sample
	inv     [3][3]float64
	logNorm float64
}

func (c *component) logDensity(s sample) float64 {
	d0, d1, d2 := s[0]-c.mean[0], s[1]-c.mean[1], s[2]-c.mean[2]
	q := d0*(c.inv[0][0]*d0+c.inv[0][1]*d1+c.inv[0][2]*d2) +
		d1*(c.inv[1][0]*d0+c.inv[1][1]*d1+c.inv[1][2]*d2) +
		d2*(c.inv[2][0]*d0+c.inv[2][1]*d1+c.inv[2][2]*d2)
	return c.logNorm - 0.5*q
}

// gmm is a colour model: a Gaussian mixture over RGB.
type gmm struct {
	comps []component
}

// logLikelihood returns log Σ w_k N(s | k).
func (g *gmm) logLikelihood(s sample) float64 {
	best := math.Inf(-1)
	var lp [16]float64
	for i := range g.comps {
		lp[i] = g.comps[i].logDensity(s)
		best = max(best, lp[i])
	}
	if math.IsInf(best, -1) {
		return best
	}
	sum := 0.0
	for i := range g.comps {
		sum += math.Exp(lp[i] - best)
	}
	return best + math.Log(sum)
}

// nearest returns the component most likely to have produced s.
func (g *gmm) nearest(s sample) int {
	best, bi := math.Inf(-1), 0
	for i := range g.comps {
		if lp := g.comps[i].logDensity(s); lp > best {
			best, bi = lp, i
		}
	}
	return bi
}

// initialAssignment groups samples with seeded k-means so the first fit
// starts from colour clusters rather than arbitrary splits.
func initialAssignment(samples []sample, k int) ([]int, error) {
	obs := make(clusters.Observations, len(samples))
	for i, s := range samples {
		obs[i] = clusters.Coordinates{s[0], s[1], s[2]}
	}
	cc, err := cluster.KMeans(obs, k, cluster.Options{MaxIterations: 10})
	if err != nil {
		return nil, err
	}
	return cluster.Assign(cc, obs), nil
}

// fitGMM estimates a mixture from samples and their component assignment.
// Components that received no samples are dropped.
func fitGMM(samples []sample, assign []int, k int) (*gmm, error) {
	if k > 16 {
		return nil, fmt.Errorf("%w: %d mixture components exceeds 16", ErrNumerical, k)
	}
	type acc struct {
		n    float64
		sum  sample
		prod [3][3]float64
	}
	accs := make([]acc, k)
	for i, s := range samples {
		a := &accs[assign[i]]
		a.n++
		for r := range 3 {
			a.sum[r] += s[r]
			for c := range 3 {
				a.prod[r][c] += s[r] * s[c]
			}
		}
	}

	total := float64(len(samples))
	g := &gmm{}
	for _, a := range accs {
		if a.n == 0 {
			continue
		}
		var comp component
		comp.weight = a.n / total
		for r := range 3 {
			comp.mean[r] = a.sum[r] / a.n
		}
		cov := mat.NewSymDense(3, nil)
		for r := range 3 {
			for c := r; c < 3; c++ {
				cov.SetSym(r, c, a.prod[r][c]/a.n-comp.mean[r]*comp.mean[c])
			}
		}
		if err := comp.setCovariance(cov); err != nil {
			return nil, err
		}
		g.comps = append(g.comps, comp)
	}
	if len(g.comps) == 0 {
		return nil, fmt.Errorf("%w: empty colour model", ErrDegenerateSeed)
	}
	return g, nil
}

// setCovariance factorises cov, widening its diagonal until it is positive
// definite, and stores the inverse and normalising constant.
func (c *component) setCovariance(cov *mat.SymDense) error {
	for range maxRegularise {
		var chol mat.Cholesky
		if chol.Factorize(cov) && chol.Det() > detEpsilon {
			var inv mat.SymDense
			if err := chol.InverseTo(&inv); err == nil {
				for r := range 3 {
					for col := range 3 {
						c.inv[r][col] = inv.At(r, col)
					}
				}
				c.logNorm = math.Log(c.weight) - 0.5*(3*log2Pi+chol.LogDet())
				return nil
			}
		}
		for i := range 3 {
			cov.SetSym(i, i, cov.At(i, i)+covarianceFloor)
		}
	}
	return fmt.Errorf("%w: covariance is not positive definite", ErrNumerical)
}
