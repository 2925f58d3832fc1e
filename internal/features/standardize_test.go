package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ademuri/track-clusters/internal/dataset"
)

func table(t *testing.T, rows ...[2]any) *dataset.Table {
	t.Helper()
	tbl := dataset.NewTable(dataset.TrackIDColumn, "danceability", "energy")
	for i, r := range rows {
		tbl.AppendRow(map[string]any{
			dataset.TrackIDColumn: string(rune('a' + i)),
			"danceability":        r[0],
			"energy":              r[1],
		})
	}
	return tbl
}

func TestStandardize(t *testing.T) {
	tbl := table(t, [2]any{1.0, 10.0}, [2]any{2.0, 20.0}, [2]any{3.0, 30.0})

	s, err := Standardize(tbl, DefaultNames)
	require.NoError(t, err)

	n, d := s.Matrix.Dims()
	require.Equal(t, 3, n)
	require.Equal(t, 2, d)

	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, s.Matrix)
		var sum, sq float64
		for _, v := range col {
			sum += v
			sq += v * v
		}
		assert.InDelta(t, 0, sum/float64(n), 1e-12, "column %d mean", j)
		assert.InDelta(t, 1, sq/float64(n), 1e-12, "column %d population variance", j)
	}

	// Population std of {1,2,3} is sqrt(2/3).
	assert.InDelta(t, -1.224744871391589, s.Matrix.At(0, 0), 1e-12)
	assert.Equal(t, []float64{2, 20}, s.Mean)
	assert.Equal(t, []float64{2, 20}, s.Inverse([]float64{0, 0}))
}

func TestStandardizeIsRefitGlobally(t *testing.T) {
	tbl := table(t, [2]any{0.1, 0.4}, [2]any{0.5, 0.9}, [2]any{0.3, 0.2})

	first, err := Standardize(tbl, DefaultNames)
	require.NoError(t, err)
	again, err := Standardize(tbl, DefaultNames)
	require.NoError(t, err)
	assert.True(t, mat.Equal(first.Matrix, again.Matrix), "same input must give the same matrix")

	grown := dataset.Concat(tbl, table(t, [2]any{0.9, 0.95}))
	refit, err := Standardize(grown, DefaultNames)
	require.NoError(t, err)
	for i := 0; i < tbl.Len(); i++ {
		assert.NotEqual(t, first.Matrix.At(i, 0), refit.Matrix.At(i, 0), "row %d should change after new rows", i)
	}
}

func TestStandardizeConstantColumn(t *testing.T) {
	tbl := table(t, [2]any{0.5, 1.0}, [2]any{0.5, 2.0})
	s, err := Standardize(tbl, DefaultNames)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Matrix.At(0, 0))
	assert.Equal(t, 0.0, s.Matrix.At(1, 0))
}

func TestStandardizeErrors(t *testing.T) {
	t.Run("missing danceability", func(t *testing.T) {
		// An audio-features response without danceability for any track.
		features := dataset.Payload{"audio_features": []any{
			map[string]any{"id": "t1", "energy": 0.2},
			map[string]any{"id": "t2", "energy": 0.7},
		}}
		tracks := dataset.Payload{"tracks": []any{
			map[string]any{"id": "t1", "name": "One"},
			map[string]any{"id": "t2", "name": "Two"},
		}}
		batch, err := dataset.Reshape(features, tracks, "A", "a")
		require.NoError(t, err)
		merged, err := batch.Merge()
		require.NoError(t, err)

		_, err = Standardize(merged, DefaultNames)
		require.ErrorIs(t, err, ErrMissingColumn)
		var missing *MissingColumnError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "danceability", missing.Name)
	})

	t.Run("null value", func(t *testing.T) {
		tbl := table(t, [2]any{0.1, 0.2}, [2]any{nil, 0.3})
		_, err := Standardize(tbl, DefaultNames)
		require.ErrorIs(t, err, ErrNonNumericFeature)
	})

	t.Run("text value", func(t *testing.T) {
		tbl := table(t, [2]any{"loud", 0.2})
		_, err := Standardize(tbl, DefaultNames)
		var nonNumeric *NonNumericFeatureError
		require.ErrorAs(t, err, &nonNumeric)
		assert.Equal(t, 0, nonNumeric.Row)
	})

	t.Run("numeric text is accepted", func(t *testing.T) {
		tbl := table(t, [2]any{"0.25", 0.2}, [2]any{"0.75", 0.4})
		_, err := Standardize(tbl, DefaultNames)
		require.NoError(t, err)
	})

	t.Run("wrong feature count", func(t *testing.T) {
		_, err := Standardize(table(t, [2]any{0.1, 0.2}), []string{"energy"})
		require.ErrorIs(t, err, ErrFeatureCount)
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := Standardize(table(t), DefaultNames)
		require.ErrorIs(t, err, ErrEmptyDataset)
	})
}
