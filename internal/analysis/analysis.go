// Package analysis attaches cluster labels to a track table and reports which
// clusters each artist's top tracks fall into.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ademuri/track-clusters/internal/dataset"
)

// LabelsColumn holds the cluster index of each row after Annotate.
const LabelsColumn = "labels"

var ErrMisalignedLabels = errors.New("analysis: more labels than rows")

// Annotate returns a copy of t with a leading labels column. Label i belongs
// to row i; rows past the end of labels get a null label.
func Annotate(t *dataset.Table, labels []int) (*dataset.Table, error) {
	if len(labels) > t.Len() {
		return nil, fmt.Errorf("%w: %d labels for %d rows", ErrMisalignedLabels, len(labels), t.Len())
	}
	values := make([]any, t.Len())
	for i, l := range labels {
		values[i] = l
	}
	out := t.Clone()
	if err := out.InsertColumn(0, LabelsColumn, values); err != nil {
		return nil, fmt.Errorf("annotating: %w", err)
	}
	return out, nil
}

// ArtistClusters groups the rows of an annotated table by artist name, in the
// order artists first appear, and collects the distinct labels of each.
// Rows without an artist name are skipped.
func ArtistClusters(t *dataset.Table, totalK int) (*Report, error) {
	labels, ok := t.Column(LabelsColumn)
	if !ok {
		return nil, fmt.Errorf("analysis: table has no %q column", LabelsColumn)
	}
	artists, ok := t.Column(dataset.ArtistNameColumn)
	if !ok {
		return nil, fmt.Errorf("analysis: table has no %q column", dataset.ArtistNameColumn)
	}

	report := &Report{TotalClusters: totalK}
	seen := make(map[string]int)
	sets := make(map[string]map[int]bool)
	for i, a := range artists {
		name, ok := a.(string)
		if !ok || name == "" {
			continue
		}
		idx, ok := seen[name]
		if !ok {
			idx = len(report.Artists)
			seen[name] = idx
			sets[name] = make(map[int]bool)
			report.Artists = append(report.Artists, ArtistMembership{Artist: name})
		}
		report.Artists[idx].Tracks++

		label, ok, err := labelValue(labels[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if ok {
			sets[name][label] = true
		}
	}

	for i := range report.Artists {
		set := sets[report.Artists[i].Artist]
		clusters := make([]int, 0, len(set))
		for l := range set {
			clusters = append(clusters, l)
		}
		sort.Ints(clusters)
		report.Artists[i].Clusters = clusters
	}
	return report, nil
}

// labelValue accepts labels as written by Annotate or read back from a file.
func labelValue(v any) (int, bool, error) {
	switch v := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, fmt.Errorf("analysis: label %v is not an integer", v)
		}
		return int(v), true, nil
	default:
		return 0, false, fmt.Errorf("analysis: unexpected label %#v", v)
	}
}

// Lines renders one line per artist.
func (r *Report) Lines() []string {
	lines := make([]string, 0, len(r.Artists))
	for _, a := range r.Artists {
		lines = append(lines, a.Line(r.TotalClusters))
	}
	return lines
}

func (r *Report) String() string {
	var b strings.Builder
	for _, l := range r.Lines() {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// Line describes how the artist's tracks spread over totalK clusters.
func (a ArtistMembership) Line(totalK int) string {
	switch n := len(a.Clusters); {
	case n == 0:
		return fmt.Sprintf("%s has no clustered top tracks.", a.Artist)
	case n == totalK:
		return fmt.Sprintf("%s has at least one top track in all %s clusters.", a.Artist, countWord(totalK))
	case n == 1:
		return fmt.Sprintf("%s has at least one top track in one cluster. The cluster is %s", a.Artist, formatSet(a.Clusters))
	default:
		return fmt.Sprintf("%s has at least one top track in the following %s clusters: %s", a.Artist, countWord(n), formatSet(a.Clusters))
	}
}

var words = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

func countWord(n int) string {
	if n >= 0 && n < len(words) {
		return words[n]
	}
	return strconv.Itoa(n)
}

func formatSet(labels []int) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = strconv.Itoa(l)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
