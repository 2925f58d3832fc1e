package catalog

import (
	"context"
	"fmt"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/rs/zerolog"

	"github.com/ademuri/track-clusters/internal/dataset"
)

type Artist struct {
	ID   string
	Name string
}

// RelatedSource lists artists related to a seed artist, in the order the
// source ranks them.
type RelatedSource interface {
	Related(ctx context.Context, artistID, artistName string) ([]Artist, error)
}

// SpotifyRelated uses the catalog's related-artists endpoint.
type SpotifyRelated struct {
	Client *Client
}

func (s SpotifyRelated) Related(ctx context.Context, artistID, _ string) ([]Artist, error) {
	p, err := s.Client.RelatedArtists(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return ArtistsFromPayload(p)
}

// ArtistsFromPayload reads the id and name of each entry of a related-artists
// payload.
func ArtistsFromPayload(p dataset.Payload) ([]Artist, error) {
	raw, ok := p["artists"].([]any)
	if !ok {
		return nil, &dataset.MalformedPayloadError{Key: "artists", Reason: "missing or not a list"}
	}
	artists := make([]Artist, 0, len(raw))
	for i, r := range raw {
		rec, _ := r.(map[string]any)
		id, _ := rec["id"].(string)
		name, _ := rec["name"].(string)
		if id == "" || name == "" {
			return nil, &dataset.MalformedPayloadError{Key: fmt.Sprintf("artists[%d]", i), Reason: "missing id or name"}
		}
		artists = append(artists, Artist{ID: id, Name: name})
	}
	return artists, nil
}

// SimilarNames returns up to limit artist names similar to name.
type SimilarNames func(ctx context.Context, name string, limit int) ([]string, error)

// LastfmSimilar looks up similar artists with artist.getSimilar.
func LastfmSimilar(api *lastfm.Api) SimilarNames {
	return func(_ context.Context, name string, limit int) ([]string, error) {
		res, err := api.Artist.GetSimilar(lastfm.P{
			"artist":      name,
			"limit":       limit,
			"autocorrect": 1,
		})
		if err != nil {
			return nil, fmt.Errorf("similar artists for %q: %w", name, apiError(err))
		}
		names := make([]string, 0, len(res.Similars))
		for _, s := range res.Similars {
			names = append(names, s.Name)
		}
		return names, nil
	}
}

// LastfmRelated finds similar artists by name on Last.fm and resolves each to
// a catalog id. Names with no catalog match are skipped.
type LastfmRelated struct {
	Similar SimilarNames
	Catalog *Client
	Limit   int
	Logger  zerolog.Logger
}

func (l LastfmRelated) Related(ctx context.Context, _, artistName string) ([]Artist, error) {
	limit := l.Limit
	if limit <= 0 {
		limit = 20
	}
	names, err := l.Similar(ctx, artistName, limit)
	if err != nil {
		return nil, err
	}

	artists := make([]Artist, 0, len(names))
	for _, name := range names {
		a, ok, err := l.Catalog.FindArtist(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			l.Logger.Debug().Str("artist", name).Msg("no catalog match for similar artist")
			continue
		}
		artists = append(artists, a)
	}
	return artists, nil
}
