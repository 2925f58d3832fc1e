package analysis

import (
	"errors"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ademuri/track-clusters/internal/dataset"
	"github.com/ademuri/track-clusters/internal/features"
	"github.com/ademuri/track-clusters/internal/kmeans"
)

func tracksTable(artists ...any) *dataset.Table {
	t := dataset.NewTable(dataset.TrackIDColumn, dataset.TrackNameColumn, dataset.ArtistNameColumn)
	for i, a := range artists {
		t.AppendRow(map[string]any{
			dataset.TrackIDColumn:    string(rune('a' + i)),
			dataset.TrackNameColumn:  "Track " + string(rune('A'+i)),
			dataset.ArtistNameColumn: a,
		})
	}
	return t
}

func TestArtistClustersExample(t *testing.T) {
	tbl := tracksTable("A", "A", "A", "B", "B")
	annotated, err := Annotate(tbl, []int{0, 1, 2, 0, 0})
	if err != nil {
		t.Fatalf("Annotate() error: %v", err)
	}
	if got := annotated.Columns()[0]; got != LabelsColumn {
		t.Errorf("first column = %q, want %q", got, LabelsColumn)
	}

	report, err := ArtistClusters(annotated, 3)
	if err != nil {
		t.Fatalf("ArtistClusters() error: %v", err)
	}
	want := []string{
		"A has at least one top track in all three clusters.",
		"B has at least one top track in one cluster. The cluster is {0}",
	}
	if got := report.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
	if report.Artists[0].Tracks != 3 || report.Artists[1].Tracks != 2 {
		t.Errorf("track counts = %+v", report.Artists)
	}
}

func TestArtistMembershipLine(t *testing.T) {
	tests := []struct {
		clusters []int
		totalK   int
		want     string
	}{
		{[]int{0, 2}, 3, "X has at least one top track in the following two clusters: {0, 2}"},
		{[]int{1, 3, 4}, 5, "X has at least one top track in the following three clusters: {1, 3, 4}"},
		{[]int{0, 1, 2, 3, 4}, 5, "X has at least one top track in all five clusters."},
		{[]int{4}, 5, "X has at least one top track in one cluster. The cluster is {4}"},
		{nil, 3, "X has no clustered top tracks."},
		{[]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, 12, "X has at least one top track in all 12 clusters."},
	}
	for _, tt := range tests {
		got := ArtistMembership{Artist: "X", Clusters: tt.clusters}.Line(tt.totalK)
		if got != tt.want {
			t.Errorf("Line(%v, k=%d) = %q, want %q", tt.clusters, tt.totalK, got, tt.want)
		}
	}
}

func TestArtistClustersOrderAndNulls(t *testing.T) {
	tbl := tracksTable("Zed", nil, "Abe", "Zed")
	annotated, err := Annotate(tbl, []int{1, 0, 1})
	if err != nil {
		t.Fatalf("Annotate() error: %v", err)
	}
	if v := annotated.Value(3, LabelsColumn); v != nil {
		t.Errorf("unlabelled row got label %v", v)
	}

	report, err := ArtistClusters(annotated, 2)
	if err != nil {
		t.Fatalf("ArtistClusters() error: %v", err)
	}
	if len(report.Artists) != 2 {
		t.Fatalf("artists = %+v, want Zed and Abe", report.Artists)
	}
	if report.Artists[0].Artist != "Zed" || report.Artists[1].Artist != "Abe" {
		t.Errorf("artist order = %+v, want first appearance", report.Artists)
	}
	if !reflect.DeepEqual(report.Artists[0].Clusters, []int{1}) {
		t.Errorf("Zed clusters = %v, want [1]", report.Artists[0].Clusters)
	}
}

func TestArtistClustersFloatLabels(t *testing.T) {
	tbl := tracksTable("A", "A")
	if err := tbl.InsertColumn(0, LabelsColumn, []any{2.0, 0.0}); err != nil {
		t.Fatal(err)
	}
	report, err := ArtistClusters(tbl, 3)
	if err != nil {
		t.Fatalf("ArtistClusters() error: %v", err)
	}
	if !reflect.DeepEqual(report.Artists[0].Clusters, []int{0, 2}) {
		t.Errorf("clusters = %v, want [0 2]", report.Artists[0].Clusters)
	}

	bad := tracksTable("A")
	bad.InsertColumn(0, LabelsColumn, []any{0.5})
	if _, err := ArtistClusters(bad, 2); err == nil {
		t.Error("ArtistClusters() accepted a fractional label")
	}
}

func TestAnnotateErrors(t *testing.T) {
	tbl := tracksTable("A")
	if _, err := Annotate(tbl, []int{0, 1}); !errors.Is(err, ErrMisalignedLabels) {
		t.Errorf("Annotate() error = %v, want ErrMisalignedLabels", err)
	}
	if _, err := ArtistClusters(tbl, 2); err == nil {
		t.Error("ArtistClusters() on an unlabelled table succeeded")
	}
}

func TestSummarize(t *testing.T) {
	tbl := dataset.NewTable()
	rows := []struct {
		artist, name  string
		dance, energy float64
		popularity    float64
	}{
		{"A", "Slow", 0.1, 0.1, 10},
		{"A", "Slower", 0.2, 0.1, 90},
		{"B", "Fast", 0.9, 0.9, 50},
		{"A", "Faster", 0.8, 1.0, 70},
	}
	for i, r := range rows {
		tbl.AppendRow(map[string]any{
			dataset.TrackIDColumn:    string(rune('a' + i)),
			dataset.TrackNameColumn:  r.name,
			dataset.ArtistNameColumn: r.artist,
			"danceability":           r.dance,
			"energy":                 r.energy,
			"popularity":             r.popularity,
		})
	}

	scaled, err := features.Standardize(tbl, features.DefaultNames)
	if err != nil {
		t.Fatalf("Standardize() error: %v", err)
	}
	model, err := kmeans.Fit(scaled.Matrix, 2, kmeans.DefaultOptions())
	if err != nil {
		t.Fatalf("Fit() error: %v", err)
	}

	summaries, err := Summarize(tbl, scaled, model, 1)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	slow := summaries[model.Labels[0]]
	fast := summaries[model.Labels[2]]

	if slow.Size != 2 || fast.Size != 2 {
		t.Errorf("sizes = %d, %d, want 2, 2", slow.Size, fast.Size)
	}
	if !reflect.DeepEqual(slow.TopTracks, []string{"Slower"}) {
		t.Errorf("slow top tracks = %v, want [Slower]", slow.TopTracks)
	}
	if !reflect.DeepEqual(fast.Artists, []string{"B", "A"}) {
		t.Errorf("fast artists = %v, want [B A]", fast.Artists)
	}
	if d := slow.Center["danceability"] - 0.15; d > 1e-9 || d < -1e-9 {
		t.Errorf("slow danceability center = %v, want 0.15", slow.Center["danceability"])
	}
	if got := mat.Row(nil, model.Labels[0], model.Centers); !reflect.DeepEqual(got, slow.Scaled) {
		t.Errorf("scaled center = %v, want %v", slow.Scaled, got)
	}
}
