package analysis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ademuri/track-clusters/internal/dataset"
	"github.com/ademuri/track-clusters/internal/features"
	"github.com/ademuri/track-clusters/internal/kmeans"
)

const popularityColumn = "popularity"

// Summarize describes each cluster of m: its size, its center in both
// standardized and original feature units, the artists it contains, and up to
// topN of its most popular tracks. t must be row-aligned with m.Labels.
func Summarize(t *dataset.Table, s *features.Scaled, m *kmeans.Model, topN int) ([]ClusterSummary, error) {
	if len(m.Labels) != t.Len() {
		return nil, fmt.Errorf("%w: %d labels for %d rows", ErrMisalignedLabels, len(m.Labels), t.Len())
	}

	out := make([]ClusterSummary, m.K)
	members := make([][]int, m.K)
	for c := range out {
		scaled := mat.Row(nil, c, m.Centers)
		raw := s.Inverse(scaled)
		center := make(map[string]float64, len(s.Names))
		for j, name := range s.Names {
			center[name] = raw[j]
		}
		out[c] = ClusterSummary{Label: c, Center: center, Scaled: scaled}
	}
	for i, l := range m.Labels {
		members[l] = append(members[l], i)
	}

	for c, rows := range members {
		out[c].Size = len(rows)
		seen := make(map[string]bool)
		for _, i := range rows {
			if name, ok := t.Value(i, dataset.ArtistNameColumn).(string); ok && !seen[name] {
				seen[name] = true
				out[c].Artists = append(out[c].Artists, name)
			}
		}

		sort.SliceStable(rows, func(a, b int) bool {
			return popularity(t, rows[a]) > popularity(t, rows[b])
		})
		for _, i := range rows {
			if len(out[c].TopTracks) == topN {
				break
			}
			if name, ok := t.Value(i, dataset.TrackNameColumn).(string); ok {
				out[c].TopTracks = append(out[c].TopTracks, name)
			}
		}
	}
	return out, nil
}

func popularity(t *dataset.Table, i int) float64 {
	switch v := t.Value(i, popularityColumn).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return -1
	}
}
