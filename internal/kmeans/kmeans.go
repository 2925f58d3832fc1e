// Package kmeans fits k-means models on standardized feature matrices and
// scores them for choosing a cluster count.
//
// Fits are deterministic: the same matrix, k and Options always produce the
// same labels and centers.
package kmeans

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/mat"
)

// InitPolicy selects how starting centers are chosen.
type InitPolicy string

const (
	InitKMeansPlusPlus InitPolicy = "k-means++"
	InitRandom         InitPolicy = "random"
)

var (
	ErrInvalidK             = errors.New("kmeans: invalid cluster count")
	ErrInvalidOptions       = errors.New("kmeans: invalid options")
	ErrDegenerateClustering = errors.New("kmeans: degenerate clustering")
)

// Options controls a fit. Zero fields take the values of DefaultOptions.
type Options struct {
	Init    InitPolicy
	Seed    int64
	NInit   int
	MaxIter int
	Tol     float64
}

func DefaultOptions() Options {
	return Options{
		Init:    InitKMeansPlusPlus,
		Seed:    42,
		NInit:   10,
		MaxIter: 300,
		Tol:     1e-4,
	}
}

func (o Options) withDefaults() (Options, error) {
	def := DefaultOptions()
	if o.Init == "" {
		o.Init = def.Init
	}
	if o.NInit == 0 {
		o.NInit = def.NInit
	}
	if o.MaxIter == 0 {
		o.MaxIter = def.MaxIter
	}
	if o.Tol == 0 {
		o.Tol = def.Tol
	}
	switch {
	case o.Init != InitKMeansPlusPlus && o.Init != InitRandom:
		return o, fmt.Errorf("%w: unknown init %q", ErrInvalidOptions, o.Init)
	case o.NInit < 1:
		return o, fmt.Errorf("%w: n_init must be positive, got %d", ErrInvalidOptions, o.NInit)
	case o.MaxIter < 1:
		return o, fmt.Errorf("%w: max_iter must be positive, got %d", ErrInvalidOptions, o.MaxIter)
	case o.Tol < 0:
		return o, fmt.Errorf("%w: tol must not be negative, got %g", ErrInvalidOptions, o.Tol)
	}
	return o, nil
}

// Model is a fitted k-means result.
type Model struct {
	K          int
	Labels     []int
	Centers    *mat.Dense
	Inertia    float64
	Iterations int
}

// Fit runs NInit independent k-means attempts on the rows of x and keeps the
// one with the lowest inertia. Ties keep the earlier attempt.
func Fit(x *mat.Dense, k int, opts Options) (*Model, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	n, _ := x.Dims()
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k=%d for %d points", ErrInvalidK, k, n)
	}

	obs := observations(x)
	tol := opts.Tol * meanVariance(x)

	master := rand.New(rand.NewPCG(uint64(opts.Seed), 0))
	seeds := make([]uint64, opts.NInit)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	var best *attempt
	for _, seed := range seeds {
		rng := rand.New(rand.NewPCG(seed, uint64(opts.Seed)))
		var start []clusters.Coordinates
		if opts.Init == InitRandom {
			start = randomCenters(obs, k, rng)
		} else {
			start = plusPlusCenters(obs, k, rng)
		}
		a := lloyd(obs, start, opts.MaxIter, tol)
		if best == nil || a.inertia < best.inertia {
			best = a
		}
	}

	return &Model{
		K:          k,
		Labels:     best.labels,
		Centers:    centersMatrix(best.centers),
		Inertia:    best.inertia,
		Iterations: best.iterations,
	}, nil
}

// Predict assigns each row of x to its nearest center.
func (m *Model) Predict(x *mat.Dense) []int {
	cs := make(clusters.Clusters, m.K)
	for c := range cs {
		cs[c].Center = clusters.Coordinates(mat.Row(nil, c, m.Centers))
	}
	obs := observations(x)
	labels := make([]int, len(obs))
	for i, o := range obs {
		labels[i] = cs.Nearest(o)
	}
	return labels
}

// Sizes returns the number of points assigned to each cluster.
func (m *Model) Sizes() []int {
	sizes := make([]int, m.K)
	for _, l := range m.Labels {
		sizes[l]++
	}
	return sizes
}

type attempt struct {
	labels     []int
	centers    []clusters.Coordinates
	inertia    float64
	iterations int
}

// lloyd alternates assignment and recentering until labels stop changing, the
// squared center shift falls to tol, or maxIter is reached. An empty cluster
// keeps its previous center.
func lloyd(obs clusters.Observations, start []clusters.Coordinates, maxIter int, tol float64) *attempt {
	cs := make(clusters.Clusters, len(start))
	for c := range cs {
		cs[c].Center = start[c]
	}
	labels := make([]int, len(obs))
	for i := range labels {
		labels[i] = -1
	}

	iter := 0
	for iter < maxIter {
		iter++
		cs.Reset()
		changed := false
		for i, o := range obs {
			c := cs.Nearest(o)
			if labels[i] != c {
				changed = true
			}
			labels[i] = c
			cs[c].Append(o)
		}
		if !changed {
			break
		}

		var shift float64
		for c := range cs {
			prev := cs[c].Center
			cs[c].Recenter()
			shift += prev.Distance(cs[c].Center)
		}
		if shift <= tol {
			break
		}
	}

	// Final assignment against the final centers.
	out := &attempt{labels: labels, iterations: iter}
	for i, o := range obs {
		c := cs.Nearest(o)
		labels[i] = c
		out.inertia += o.Distance(cs[c].Center)
	}
	for _, c := range cs {
		out.centers = append(out.centers, c.Center)
	}
	return out
}

// plusPlusCenters is greedy k-means++: every step samples 2+ln(k) candidates
// proportionally to squared distance and keeps the one that lowers the total
// potential the most.
func plusPlusCenters(obs clusters.Observations, k int, rng *rand.Rand) []clusters.Coordinates {
	n := len(obs)
	trials := 2 + int(math.Log(float64(k)))

	first := obs[rng.IntN(n)].Coordinates()
	centers := []clusters.Coordinates{first}

	closest := make([]float64, n)
	var pot float64
	for i, o := range obs {
		closest[i] = o.Distance(first)
		pot += closest[i]
	}

	cumulative := make([]float64, n)
	candidate := make([]float64, n)
	bestDist := make([]float64, n)
	for len(centers) < k {
		var sum float64
		for i, d := range closest {
			sum += d
			cumulative[i] = sum
		}

		bestPot := math.Inf(1)
		bestIdx := -1
		for t := 0; t < trials; t++ {
			target := rng.Float64() * pot
			idx := sort.SearchFloat64s(cumulative, target)
			if idx >= n {
				idx = n - 1
			}
			cand := obs[idx].Coordinates()
			var candPot float64
			for i, o := range obs {
				candidate[i] = math.Min(closest[i], o.Distance(cand))
				candPot += candidate[i]
			}
			if candPot < bestPot {
				bestPot, bestIdx = candPot, idx
				copy(bestDist, candidate)
			}
		}

		centers = append(centers, obs[bestIdx].Coordinates())
		pot = bestPot
		copy(closest, bestDist)
	}
	return centers
}

func randomCenters(obs clusters.Observations, k int, rng *rand.Rand) []clusters.Coordinates {
	perm := rng.Perm(len(obs))
	centers := make([]clusters.Coordinates, k)
	for c := range centers {
		centers[c] = obs[perm[c]].Coordinates()
	}
	return centers
}

func observations(x *mat.Dense) clusters.Observations {
	n, _ := x.Dims()
	obs := make(clusters.Observations, n)
	for i := range obs {
		obs[i] = clusters.Coordinates(mat.Row(nil, i, x))
	}
	return obs
}

func centersMatrix(centers []clusters.Coordinates) *mat.Dense {
	d := len(centers[0])
	m := mat.NewDense(len(centers), d, nil)
	for c, center := range centers {
		m.SetRow(c, center)
	}
	return m
}

// meanVariance is the mean of the per-column population variances of x.
func meanVariance(x *mat.Dense) float64 {
	n, d := x.Dims()
	var total float64
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		var mean float64
		for _, v := range col {
			mean += v
		}
		mean /= float64(n)
		var ss float64
		for _, v := range col {
			ss += (v - mean) * (v - mean)
		}
		total += ss / float64(n)
	}
	return total / float64(d)
}
