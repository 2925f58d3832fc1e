package kmeans

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Silhouette is the mean silhouette coefficient of labels over the rows of x,
// using Euclidean distance. A point alone in its cluster scores 0. It needs at
// least two clusters and fewer clusters than points.
func Silhouette(x *mat.Dense, labels []int, k int) (float64, error) {
	n, _ := x.Dims()
	if len(labels) != n {
		return 0, fmt.Errorf("kmeans: %d labels for %d points", len(labels), n)
	}
	if k < 2 || k >= n {
		return 0, fmt.Errorf("%w: silhouette needs 2 <= k < %d, got k=%d", ErrDegenerateClustering, n, k)
	}

	sizes := make([]int, k)
	for i, l := range labels {
		if l < 0 || l >= k {
			return 0, fmt.Errorf("kmeans: label %d at row %d is outside [0, %d)", l, i, k)
		}
		sizes[l]++
	}
	used := 0
	for _, s := range sizes {
		if s > 0 {
			used++
		}
	}
	if used < 2 {
		return 0, fmt.Errorf("%w: only %d non-empty cluster", ErrDegenerateClustering, used)
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}

	var total float64
	sums := make([]float64, k)
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if j != i {
				sums[labels[j]] += floats.Distance(rows[i], rows[j], 2)
			}
		}

		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, size := range sizes {
			if c != own && size > 0 {
				b = math.Min(b, sums[c]/float64(size))
			}
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n), nil
}
