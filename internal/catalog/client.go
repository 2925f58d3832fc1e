// Package catalog fetches artist top tracks, audio features and related
// artists from the Spotify Web API and returns them as generic JSON payloads.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/ademuri/track-clusters/internal/dataset"
)

// maxAudioFeatureIDs is the most ids the audio-features endpoint accepts.
const maxAudioFeatureIDs = 100

type Config struct {
	ClientID     string
	ClientSecret string
	Market       string

	// BaseURL and TokenURL override the Spotify endpoints.
	BaseURL  string
	TokenURL string

	// HTTPClient, when set, is used as-is and no token is requested.
	HTTPClient *http.Client

	// RateLimit is the most requests per second. Zero means unlimited.
	RateLimit float64

	Logger zerolog.Logger
}

type Client struct {
	api     *spotify.Client
	market  string
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New authenticates with the client-credentials flow and returns a client.
// A rejected token request is returned as *APIError.
func New(ctx context.Context, cfg Config) (*Client, error) {
	log := cfg.Logger.With().Str("component", "catalog").Logger()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("catalog: client id and secret are required")
		}
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = spotifyauth.TokenURL
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		if _, err := cc.Token(ctx); err != nil {
			return nil, fmt.Errorf("requesting token: %w", apiError(err))
		}
		log.Debug().Msg("obtained client credentials token")
		httpClient = cc.Client(ctx)
	}

	var opts []spotify.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(cfg.BaseURL))
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		api:     spotify.New(httpClient, opts...),
		market:  cfg.Market,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("catalog: waiting for rate limiter: %w", err)
	}
	return nil
}

// TopTracks returns {"tracks": [...]} for the artist in the configured market.
func (c *Client) TopTracks(ctx context.Context, artistID string) (dataset.Payload, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	tracks, err := c.api.GetArtistsTopTracks(ctx, spotify.ID(artistID), c.market)
	if err != nil {
		return nil, fmt.Errorf("top tracks for %s: %w", artistID, apiError(err))
	}
	c.log.Debug().Str("artist_id", artistID).Int("tracks", len(tracks)).Msg("fetched top tracks")
	return toPayload("tracks", tracks)
}

// AudioFeatures returns {"audio_features": [...]} for ids, in the same order.
// Tracks without features are null entries.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) (dataset.Payload, error) {
	all := make([]*spotify.AudioFeatures, 0, len(ids))
	for start := 0; start < len(ids); start += maxAudioFeatureIDs {
		end := min(start+maxAudioFeatureIDs, len(ids))
		batch := make([]spotify.ID, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, spotify.ID(id))
		}

		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		features, err := c.api.GetAudioFeatures(ctx, batch...)
		if err != nil {
			return nil, fmt.Errorf("audio features %d-%d of %d: %w", start+1, end, len(ids), apiError(err))
		}
		all = append(all, features...)
	}
	c.log.Debug().Int("tracks", len(ids)).Msg("fetched audio features")
	return toPayload("audio_features", all)
}

// RelatedArtists returns {"artists": [...]} as ordered by the service.
func (c *Client) RelatedArtists(ctx context.Context, artistID string) (dataset.Payload, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	artists, err := c.api.GetRelatedArtists(ctx, spotify.ID(artistID))
	if err != nil {
		return nil, fmt.Errorf("related artists for %s: %w", artistID, apiError(err))
	}
	c.log.Debug().Str("artist_id", artistID).Int("artists", len(artists)).Msg("fetched related artists")
	return toPayload("artists", artists)
}

// ArtistName looks up the display name of an artist id.
func (c *Client) ArtistName(ctx context.Context, artistID string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	a, err := c.api.GetArtist(ctx, spotify.ID(artistID))
	if err != nil {
		return "", fmt.Errorf("artist %s: %w", artistID, apiError(err))
	}
	return a.Name, nil
}

// FindArtist returns the best search match for name, or false when the
// search has no artist results.
func (c *Client) FindArtist(ctx context.Context, name string) (Artist, bool, error) {
	if err := c.wait(ctx); err != nil {
		return Artist{}, false, err
	}
	opts := []spotify.RequestOption{spotify.Limit(1)}
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}
	res, err := c.api.Search(ctx, name, spotify.SearchTypeArtist, opts...)
	if err != nil {
		return Artist{}, false, fmt.Errorf("searching for %q: %w", name, apiError(err))
	}
	if res.Artists == nil || len(res.Artists.Artists) == 0 {
		return Artist{}, false, nil
	}
	a := res.Artists.Artists[0]
	return Artist{ID: a.ID.String(), Name: a.Name}, true, nil
}

// toPayload re-encodes a typed response as generic JSON so that every field
// of the service response reaches the track table.
func toPayload(key string, v any) (dataset.Payload, error) {
	b, err := json.Marshal(map[string]any{key: v})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}
	var p dataset.Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return p, nil
}
