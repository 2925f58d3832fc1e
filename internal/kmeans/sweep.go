package kmeans

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Diagnostic is the quality of one candidate cluster count.
type Diagnostic struct {
	K          int     `yaml:"k"`
	Inertia    float64 `yaml:"inertia"`
	Silhouette float64 `yaml:"silhouette"`
}

// Sweep fits a model for every k in [kMin, kMax] and reports its inertia and
// silhouette. Each fit uses opts unchanged, so a sweep is as reproducible as a
// single Fit.
func Sweep(x *mat.Dense, kMin, kMax int, opts Options) ([]Diagnostic, error) {
	n, _ := x.Dims()
	if kMin > kMax {
		return nil, fmt.Errorf("%w: empty range [%d, %d]", ErrInvalidK, kMin, kMax)
	}
	if kMin < 2 || kMax >= n {
		return nil, fmt.Errorf("%w: range [%d, %d] must lie within [2, %d]", ErrDegenerateClustering, kMin, kMax, n-1)
	}

	out := make([]Diagnostic, 0, kMax-kMin+1)
	for k := kMin; k <= kMax; k++ {
		m, err := Fit(x, k, opts)
		if err != nil {
			return nil, fmt.Errorf("fitting k=%d: %w", k, err)
		}
		s, err := Silhouette(x, m.Labels, k)
		if err != nil {
			return nil, fmt.Errorf("scoring k=%d: %w", k, err)
		}
		out = append(out, Diagnostic{K: k, Inertia: m.Inertia, Silhouette: s})
	}
	return out, nil
}

// Best returns the diagnostic with the highest silhouette. Ties keep the
// smaller k.
func Best(diags []Diagnostic) (Diagnostic, bool) {
	if len(diags) == 0 {
		return Diagnostic{}, false
	}
	best := diags[0]
	for _, d := range diags[1:] {
		if d.Silhouette > best.Silhouette {
			best = d
		}
	}
	return best, true
}
