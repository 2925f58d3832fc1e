package dataset

import (
	"fmt"
	"sort"
)

// Payload is a decoded JSON object returned by the catalog.
type Payload map[string]any

// Batch holds the three flat tables built from one artist's responses.
type Batch struct {
	ArtistName string
	ArtistID   string

	AudioFeatures *Table
	Identity      *Table
	Metadata      *Table
}

// Reshape flattens an audio-features response and a top-tracks response for a
// single artist into column tables.
func Reshape(features, tracks Payload, artistName, artistID string) (*Batch, error) {
	featureRecords, err := records(features, "audio_features", true)
	if err != nil {
		return nil, err
	}
	trackRecords, err := records(tracks, "tracks", false)
	if err != nil {
		return nil, err
	}

	audio, err := columnize(featureRecords, "audio_features")
	if err != nil {
		return nil, err
	}
	meta, err := columnize(trackRecords, "tracks")
	if err != nil {
		return nil, err
	}

	ids := make([]any, len(trackRecords))
	names := make([]any, len(trackRecords))
	artistNames := make([]any, len(trackRecords))
	artistIDs := make([]any, len(trackRecords))
	for i, rec := range trackRecords {
		id, ok := rec["id"].(string)
		if !ok || id == "" {
			return nil, &MalformedPayloadError{Key: fmt.Sprintf("tracks[%d].id", i), Reason: "missing or not a string"}
		}
		ids[i] = id
		names[i] = rec["name"]
		artistNames[i] = artistName
		artistIDs[i] = artistID
	}
	identity := NewTable()
	identity.AddColumn(TrackIDColumn, ids)
	identity.AddColumn(TrackNameColumn, names)
	identity.AddColumn(ArtistNameColumn, artistNames)
	identity.AddColumn(ArtistIDColumn, artistIDs)

	return &Batch{
		ArtistName:    artistName,
		ArtistID:      artistID,
		AudioFeatures: audio,
		Identity:      identity,
		Metadata:      meta,
	}, nil
}

// Merge outer-joins the identity, audio-feature and metadata tables on
// track_id. The "id" column of the latter two is renamed to track_id first.
func (b *Batch) Merge() (*Table, error) {
	audio := b.AudioFeatures.Clone()
	audio.Rename("id", TrackIDColumn)
	meta := b.Metadata.Clone()
	meta.Rename("id", TrackIDColumn)

	for _, side := range []struct {
		name string
		t    *Table
	}{{"audio_features", audio}, {"tracks", meta}} {
		if side.t.Len() > 0 && !side.t.HasColumn(TrackIDColumn) {
			return nil, &MalformedPayloadError{Key: side.name + "[].id", Reason: "records carry no id"}
		}
	}

	merged, err := OuterJoin(b.Identity, audio, TrackIDColumn)
	if err != nil {
		return nil, fmt.Errorf("joining audio features for %s: %w", b.ArtistName, err)
	}
	merged, err = OuterJoin(merged, meta, TrackIDColumn)
	if err != nil {
		return nil, fmt.Errorf("joining track metadata for %s: %w", b.ArtistName, err)
	}
	return merged, nil
}

func records(p Payload, key string, allowNull bool) ([]map[string]any, error) {
	raw, ok := p[key]
	if !ok {
		return nil, &MalformedPayloadError{Key: key, Reason: "missing"}
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []map[string]any:
		for _, m := range v {
			items = append(items, m)
		}
	case nil:
		return nil, &MalformedPayloadError{Key: key, Reason: "null"}
	default:
		return nil, &MalformedPayloadError{Key: key, Reason: fmt.Sprintf("expected a list, got %T", raw)}
	}

	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		switch rec := item.(type) {
		case map[string]any:
			out = append(out, rec)
		case Payload:
			out = append(out, rec)
		case nil:
			// The catalog returns null for tracks it has no analysis for.
			if allowNull {
				continue
			}
			return nil, &MalformedPayloadError{Key: fmt.Sprintf("%s[%d]", key, i), Reason: "null"}
		default:
			return nil, &MalformedPayloadError{Key: fmt.Sprintf("%s[%d]", key, i), Reason: fmt.Sprintf("expected an object, got %T", item)}
		}
	}
	return out, nil
}

// columnize turns records into one column per key. Every record must carry the
// key set of the first one.
func columnize(recs []map[string]any, source string) (*Table, error) {
	t := NewTable()
	if len(recs) == 0 {
		return t, nil
	}

	keys := sortedKeys(recs[0])
	cols := make([][]any, len(keys))
	for i, rec := range recs {
		if len(rec) != len(keys) {
			return nil, &SchemaMismatchError{Source: source, Record: i, Key: extraKey(rec, recs[0])}
		}
		for k, key := range keys {
			v, ok := rec[key]
			if !ok {
				return nil, &SchemaMismatchError{Source: source, Record: i, Key: key}
			}
			cols[k] = append(cols[k], v)
		}
	}
	for k, key := range keys {
		if err := t.AddColumn(key, cols[k]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// extraKey returns a key that differs between rec and ref, for error messages.
func extraKey(rec, ref map[string]any) string {
	for _, k := range sortedKeys(rec) {
		if _, ok := ref[k]; !ok {
			return k
		}
	}
	for _, k := range sortedKeys(ref) {
		if _, ok := rec[k]; !ok {
			return k
		}
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
