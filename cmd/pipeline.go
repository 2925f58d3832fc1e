/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/rs/zerolog"

	"github.com/ademuri/track-clusters/internal/analysis"
	"github.com/ademuri/track-clusters/internal/catalog"
	"github.com/ademuri/track-clusters/internal/dataset"
	"github.com/ademuri/track-clusters/internal/features"
	"github.com/ademuri/track-clusters/internal/kmeans"
)

// catalogSource is the part of *catalog.Client the fetcher uses.
type catalogSource interface {
	TopTracks(ctx context.Context, artistID string) (dataset.Payload, error)
	AudioFeatures(ctx context.Context, ids []string) (dataset.Payload, error)
	ArtistName(ctx context.Context, artistID string) (string, error)
}

type fetcher struct {
	catalog catalogSource
	related catalog.RelatedSource

	// timeout bounds each catalog call. Zero means no bound.
	timeout time.Duration
	log     zerolog.Logger
}

func newFetcher(ctx context.Context, config FetchConfig, log zerolog.Logger) (*fetcher, error) {
	client, err := catalog.New(ctx, catalog.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Market:       config.Market,
		RateLimit:    config.Rate,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	var related catalog.RelatedSource = catalog.SpotifyRelated{Client: client}
	if config.RelatedSource == "lastfm" {
		related = catalog.LastfmRelated{
			Similar: catalog.LastfmSimilar(lastfm.New(config.LastfmAPIKey, config.LastfmSecret)),
			Catalog: client,
			Logger:  log,
		}
	}

	return &fetcher{
		catalog: client,
		related: related,
		timeout: config.Timeout,
		log:     log.With().Str("component", "fetcher").Logger(),
	}, nil
}

// call runs fn under the per-call timeout.
func (f *fetcher) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// seed returns the main artist, looking its name up when name is empty.
func (f *fetcher) seed(ctx context.Context, id, name string) (catalog.Artist, error) {
	if name != "" {
		return catalog.Artist{ID: id, Name: name}, nil
	}
	err := f.call(ctx, func(ctx context.Context) error {
		var err error
		name, err = f.catalog.ArtistName(ctx, id)
		return err
	})
	if err != nil {
		return catalog.Artist{}, err
	}
	return catalog.Artist{ID: id, Name: name}, nil
}

// batch fetches one artist's top tracks and their audio features and merges
// them into a single table.
func (f *fetcher) batch(ctx context.Context, artist catalog.Artist) (*dataset.Table, error) {
	var tracks, audio dataset.Payload
	err := f.call(ctx, func(ctx context.Context) error {
		var err error
		tracks, err = f.catalog.TopTracks(ctx, artist.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	ids, err := trackIDs(tracks)
	if err != nil {
		return nil, err
	}
	err = f.call(ctx, func(ctx context.Context) error {
		var err error
		audio, err = f.catalog.AudioFeatures(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	b, err := dataset.Reshape(audio, tracks, artist.Name, artist.ID)
	if err != nil {
		return nil, fmt.Errorf("reshaping %s: %w", artist.Name, err)
	}
	return b.Merge()
}

// build assembles the unified table: the seed artist's batch first, then one
// batch per related artist in the order the source returned them. Any error
// stops the whole build.
func (f *fetcher) build(ctx context.Context, seed catalog.Artist) (*dataset.Table, error) {
	var related []catalog.Artist
	err := f.call(ctx, func(ctx context.Context) error {
		var err error
		related, err = f.related.Related(ctx, seed.ID, seed.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.log.Info().Str("artist", seed.Name).Int("related", len(related)).Msg("fetching top tracks")

	var unified *dataset.Table
	for _, artist := range append([]catalog.Artist{seed}, related...) {
		t, err := f.batch(ctx, artist)
		if err != nil {
			return nil, err
		}
		f.log.Debug().Str("artist", artist.Name).Int("tracks", t.Len()).Msg("merged batch")
		unified = dataset.Concat(unified, t)
	}
	return unified, nil
}

func trackIDs(tracks dataset.Payload) ([]string, error) {
	raw, ok := tracks["tracks"].([]any)
	if !ok {
		return nil, &dataset.MalformedPayloadError{Key: "tracks", Reason: "missing or not a list"}
	}
	ids := make([]string, 0, len(raw))
	for i, r := range raw {
		rec, _ := r.(map[string]any)
		id, _ := rec["id"].(string)
		if id == "" {
			return nil, &dataset.MalformedPayloadError{Key: fmt.Sprintf("tracks[%d].id", i), Reason: "missing or not a string"}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type clusterResult struct {
	Scaled    *features.Scaled
	Model     *kmeans.Model
	Annotated *dataset.Table
	Report    *analysis.Report
	Clusters  []analysis.ClusterSummary
}

// clusterTable standardizes the configured features over all rows of t, fits
// k-means and reports which clusters each artist's tracks fall into.
func clusterTable(t *dataset.Table, config ClusterConfig) (*clusterResult, error) {
	scaled, err := features.Standardize(t, config.Features)
	if err != nil {
		return nil, err
	}
	model, err := kmeans.Fit(scaled.Matrix, config.K, config.Options)
	if err != nil {
		return nil, err
	}
	annotated, err := analysis.Annotate(t, model.Labels)
	if err != nil {
		return nil, err
	}
	report, err := analysis.ArtistClusters(annotated, config.K)
	if err != nil {
		return nil, err
	}
	clusters, err := analysis.Summarize(t, scaled, model, config.TopN)
	if err != nil {
		return nil, err
	}
	return &clusterResult{
		Scaled:    scaled,
		Model:     model,
		Annotated: annotated,
		Report:    report,
		Clusters:  clusters,
	}, nil
}

// sweepTable standardizes afresh and scores every k in [KMin, KMax].
func sweepTable(t *dataset.Table, config ClusterConfig) ([]kmeans.Diagnostic, error) {
	scaled, err := features.Standardize(t, config.Features)
	if err != nil {
		return nil, err
	}
	return kmeans.Sweep(scaled.Matrix, config.KMin, config.KMax, config.Options)
}
