// Package features extracts numeric feature columns from a track table and
// scales them to zero mean and unit variance.
package features

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ademuri/track-clusters/internal/dataset"
)

// DefaultNames are the features clustered when none are configured.
var DefaultNames = []string{"danceability", "energy"}

var (
	ErrMissingColumn     = errors.New("features: missing column")
	ErrNonNumericFeature = errors.New("features: non-numeric value")
	ErrFeatureCount      = errors.New("features: exactly two feature names are required")
	ErrEmptyDataset      = errors.New("features: dataset has no rows")
)

type MissingColumnError struct {
	Name string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("features: missing column %q", e.Name)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

type NonNumericFeatureError struct {
	Name  string
	Row   int
	Value any
}

func (e *NonNumericFeatureError) Error() string {
	return fmt.Sprintf("features: column %q row %d: cannot use %#v as a number", e.Name, e.Row, e.Value)
}

func (e *NonNumericFeatureError) Unwrap() error { return ErrNonNumericFeature }

// Scaled is a standardized feature matrix with the statistics used to build it.
type Scaled struct {
	Names  []string
	Raw    *mat.Dense
	Matrix *mat.Dense
	Mean   []float64
	Scale  []float64
}

// Extract copies the named columns of t into an n×len(names) matrix.
func Extract(t *dataset.Table, names []string) (*mat.Dense, error) {
	for _, name := range names {
		if !t.HasColumn(name) {
			return nil, &MissingColumnError{Name: name}
		}
	}
	if t.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	x := mat.NewDense(t.Len(), len(names), nil)
	for j, name := range names {
		col, _ := t.Column(name)
		for i, v := range col {
			f, err := toFloat(v)
			if err != nil {
				return nil, &NonNumericFeatureError{Name: name, Row: i, Value: v}
			}
			x.Set(i, j, f)
		}
	}
	return x, nil
}

// Standardize extracts exactly two feature columns and scales each to mean 0
// and unit population variance. The statistics come from every row of t at the
// time of the call; nothing is cached between calls.
func Standardize(t *dataset.Table, names []string) (*Scaled, error) {
	if len(names) != 2 {
		return nil, fmt.Errorf("%w: got %d", ErrFeatureCount, len(names))
	}
	raw, err := Extract(t, names)
	if err != nil {
		return nil, err
	}

	n, d := raw.Dims()
	scaled := mat.NewDense(n, d, nil)
	means := make([]float64, d)
	scales := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, raw)
		mean, std := stat.PopMeanStdDev(col, nil)
		// A constant column is only centered.
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		means[j], scales[j] = mean, std
		for i := 0; i < n; i++ {
			scaled.Set(i, j, (col[i]-mean)/std)
		}
	}

	return &Scaled{
		Names:  append([]string(nil), names...),
		Raw:    raw,
		Matrix: scaled,
		Mean:   means,
		Scale:  scales,
	}, nil
}

// Inverse maps a row of standardized coordinates back to feature units.
func (s *Scaled) Inverse(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = v*s.Scale[j] + s.Mean[j]
	}
	return out
}

func toFloat(v any) (float64, error) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return f, nil
}
