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
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/track-clusters/internal/dataset"
	"github.com/ademuri/track-clusters/internal/store"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches top tracks of an artist and its related artists",
	Long: `Fetches the top tracks and audio features of the artist and of each related
artist, writes the combined table to --output and stores a snapshot in the
database.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := required("artist_id"); err != nil {
			return err
		}
		return validateRelatedSource()
	},
	Run: func(cmd *cobra.Command, args []string) {
		config, err := fetchConfigFromViper()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		log := newLogger(os.Stderr, viper.GetString("log_level"))

		ctx := context.Background()
		f, err := newFetcher(ctx, config, log)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if _, _, err := fetchAndStore(ctx, f, config, os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

// fetchAndStore builds the unified table and persists it. Nothing is written
// unless every batch was fetched.
func fetchAndStore(ctx context.Context, f *fetcher, config FetchConfig, out io.Writer) (store.Run, *dataset.Table, error) {
	seed, err := f.seed(ctx, config.ArtistID, config.ArtistName)
	if err != nil {
		return store.Run{}, nil, err
	}
	t, err := f.build(ctx, seed)
	if err != nil {
		return store.Run{}, nil, err
	}

	run, err := persist(ctx, config, seed.Name, t, f.log)
	if err != nil {
		return store.Run{}, nil, err
	}
	fmt.Fprintf(out, "Saved %d tracks from %d artists to %s (run %s)\n", t.Len(), countArtists(t), config.Output, run.ID)
	return run, t, nil
}

func persist(ctx context.Context, config FetchConfig, artistName string, t *dataset.Table, log zerolog.Logger) (store.Run, error) {
	if config.Output != "" {
		if err := dataset.SaveCSV(config.Output, t); err != nil {
			return store.Run{}, err
		}
		log.Debug().Str("path", config.Output).Msg("wrote csv")
	}

	db, err := store.New(config.DbPath)
	if err != nil {
		return store.Run{}, err
	}
	defer db.Close()

	run := store.NewRun(config.ArtistID, artistName)
	run.Market = config.Market
	run.RelatedSource = config.RelatedSource
	if err := db.SaveRun(ctx, run, t); err != nil {
		return store.Run{}, err
	}
	log.Info().Str("run", run.ID.String()).Int("rows", t.Len()).Msg("stored snapshot")
	return run, nil
}

func countArtists(t *dataset.Table) int {
	ids, _ := t.Column(dataset.ArtistIDColumn)
	seen := make(map[any]bool)
	for _, id := range ids {
		seen[id] = true
	}
	return len(seen)
}
