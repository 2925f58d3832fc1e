package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func featureRecord(id string, dance, energy float64) map[string]any {
	return map[string]any{
		"id":           id,
		"danceability": dance,
		"energy":       energy,
		"duration_ms":  200000.0,
	}
}

func trackRecord(id, name string, popularity float64) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"popularity":  popularity,
		"duration_ms": 200000.0,
		"album":       map[string]any{"name": "Album " + name},
	}
}

func TestReshapeAndMerge(t *testing.T) {
	features := Payload{"audio_features": []any{
		featureRecord("t2", 0.5, 0.6),
		featureRecord("t1", 0.1, 0.2),
		nil,
	}}
	tracks := Payload{"tracks": []any{
		trackRecord("t1", "One", 50),
		trackRecord("t2", "Two", 60),
		trackRecord("t3", "Three", 70),
	}}

	batch, err := Reshape(features, tracks, "Artist", "a1")
	if err != nil {
		t.Fatalf("Reshape() error: %v", err)
	}
	if got := batch.AudioFeatures.Len(); got != 2 {
		t.Errorf("audio features rows = %d, want 2", got)
	}
	if got := batch.Identity.Len(); got != 3 {
		t.Errorf("identity rows = %d, want 3", got)
	}

	merged, err := batch.Merge()
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	// Union of ids across the three sources.
	if merged.Len() != 3 {
		t.Fatalf("merged rows = %d, want 3", merged.Len())
	}
	ids, _ := merged.Column(TrackIDColumn)
	for i, want := range []string{"t1", "t2", "t3"} {
		if ids[i] != want {
			t.Errorf("row %d track_id = %v, want %s", i, ids[i], want)
		}
	}

	if v := merged.Value(2, "danceability"); v != nil {
		t.Errorf("t3 danceability = %v, want null", v)
	}
	if v := merged.Value(0, "danceability"); v != 0.1 {
		t.Errorf("t1 danceability = %v, want 0.1", v)
	}
	if v := merged.Value(1, "popularity"); v != 60.0 {
		t.Errorf("t2 popularity = %v, want 60", v)
	}
	if v := merged.Value(2, ArtistNameColumn); v != "Artist" {
		t.Errorf("t3 artist_name = %v, want Artist", v)
	}
	for _, c := range []string{"duration_ms_x", "duration_ms_y"} {
		if !merged.HasColumn(c) {
			t.Errorf("merged table lacks suffixed column %q: %v", c, merged.Columns())
		}
	}
	if merged.HasColumn("id") {
		t.Errorf("merged table still has an id column")
	}
}

func TestMergeKeepsUnmatchedFeatureRows(t *testing.T) {
	features := Payload{"audio_features": []any{featureRecord("orphan", 0.3, 0.3)}}
	tracks := Payload{"tracks": []any{trackRecord("t1", "One", 1)}}

	batch, err := Reshape(features, tracks, "Artist", "a1")
	if err != nil {
		t.Fatalf("Reshape() error: %v", err)
	}
	merged, err := batch.Merge()
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if merged.Len() != 2 {
		t.Fatalf("merged rows = %d, want 2", merged.Len())
	}
	if v := merged.Value(0, ArtistNameColumn); v != nil {
		t.Errorf("orphan artist_name = %v, want null", v)
	}
}

func TestReshapeMalformed(t *testing.T) {
	tests := []struct {
		name     string
		features Payload
		tracks   Payload
	}{
		{"no audio_features key", Payload{}, Payload{"tracks": []any{}}},
		{"no tracks key", Payload{"audio_features": []any{}}, Payload{"error": "nope"}},
		{"tracks not a list", Payload{"audio_features": []any{}}, Payload{"tracks": "x"}},
		{"track without id", Payload{"audio_features": []any{}}, Payload{"tracks": []any{map[string]any{"name": "x"}}}},
		{"null track", Payload{"audio_features": []any{}}, Payload{"tracks": []any{nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reshape(tt.features, tt.tracks, "A", "a")
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Reshape() error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestReshapeSchemaMismatch(t *testing.T) {
	partial := map[string]any{"id": "t2", "energy": 0.4, "duration_ms": 1.0}
	features := Payload{"audio_features": []any{featureRecord("t1", 0.1, 0.2), partial}}
	tracks := Payload{"tracks": []any{trackRecord("t1", "One", 1), trackRecord("t2", "Two", 2)}}

	_, err := Reshape(features, tracks, "A", "a")
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Reshape() error = %v, want *SchemaMismatchError", err)
	}
	if mismatch.Record != 1 || mismatch.Key != "danceability" {
		t.Errorf("mismatch = %+v, want record 1 key danceability", mismatch)
	}
}

func TestConcatRowCounts(t *testing.T) {
	var unified *Table
	sizes := []int{3, 0, 2, 5}
	total := 0
	for b, n := range sizes {
		batch := NewTable(TrackIDColumn, ArtistNameColumn)
		for i := 0; i < n; i++ {
			// Same ids in every batch: concatenation never dedups.
			batch.AppendRow(map[string]any{TrackIDColumn: string(rune('a' + i)), ArtistNameColumn: b})
		}
		unified = Concat(unified, batch)
		total += n
		if unified.Len() != total {
			t.Fatalf("after batch %d rows = %d, want %d", b, unified.Len(), total)
		}
	}
	if got := unified.Value(3, ArtistNameColumn); got != 2 {
		t.Errorf("row 3 artist = %v, want batch 2 (existing rows first)", got)
	}
}

func TestConcatUnionsColumns(t *testing.T) {
	a := NewTable("x")
	a.AppendRow(map[string]any{"x": 1.0})
	b := NewTable("x", "y")
	b.AppendRow(map[string]any{"x": 2.0, "y": "z"})

	c := Concat(a, b)
	if got := strings.Join(c.Columns(), ","); got != "x,y" {
		t.Errorf("columns = %s, want x,y", got)
	}
	if c.Value(0, "y") != nil || c.Value(1, "y") != "z" {
		t.Errorf("y column = %v, %v", c.Value(0, "y"), c.Value(1, "y"))
	}
	if a.HasColumn("y") {
		t.Errorf("Concat modified its base table")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := NewTable(TrackIDColumn, TrackNameColumn, "danceability", "explicit", "album")
	tbl.AppendRow(map[string]any{
		TrackIDColumn:   "t1",
		TrackNameColumn: "1979",
		"danceability":  0.25,
		"explicit":      false,
		"album":         map[string]any{"name": "Mellon Collie"},
	})
	tbl.AppendRow(map[string]any{TrackIDColumn: "t2", TrackNameColumn: "Tonight"})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != ",track_id,track_name,danceability,explicit,album" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "1,t2,Tonight,,,") {
		t.Errorf("second row = %q", lines[2])
	}

	back, err := ReadCSV(&buf, IdentityColumns...)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if back.Len() != 2 {
		t.Fatalf("rows = %d, want 2", back.Len())
	}
	if v := back.Value(0, TrackNameColumn); v != "1979" {
		t.Errorf("track_name = %#v, want text", v)
	}
	if v := back.Value(0, "danceability"); v != 0.25 {
		t.Errorf("danceability = %#v, want 0.25", v)
	}
	if v := back.Value(1, "danceability"); v != nil {
		t.Errorf("null danceability read back as %#v", v)
	}
	album, ok := back.Value(0, "album").(map[string]any)
	if !ok || album["name"] != "Mellon Collie" {
		t.Errorf("album = %#v", back.Value(0, "album"))
	}
}
