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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "track-clusters",
	Short: "Clusters an artist's top tracks by audio features",
	Long: `Fetches the top tracks of an artist and of related artists, stores the
combined table, and groups the tracks with k-means on their audio features.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.track-clusters.yaml)")

	flags.String("artist_id", "", "Catalog id of the seed artist")
	flags.String("artist_name", "", "Display name of the seed artist (looked up when empty)")
	flags.String("client_id", "", "Spotify client id (or SPOTIFY_CLIENT_ID)")
	flags.String("client_secret", "", "Spotify client secret (or SPOTIFY_CLIENT_SECRET)")
	flags.String("market", "ES", "Market used for top tracks")

	flags.StringP("database", "d", "./track-clusters.db", "Path to the SQLite database")
	flags.StringP("output", "o", "artist_info.csv", "Path of the CSV written after fetching")

	flags.IntP("clusters", "k", 3, "Number of clusters")
	flags.String("init", "k-means++", "Center initialization: k-means++ or random")
	flags.Int64("seed", 42, "Random seed for center initialization")
	flags.Int("n_init", 10, "Number of k-means attempts")
	flags.StringSlice("features", []string{"danceability", "energy"}, "The two audio features to cluster on")
	flags.Int("k_min", 2, "Smallest cluster count in a sweep")
	flags.Int("k_max", 10, "Largest cluster count in a sweep")

	flags.String("related_source", "spotify", "Where related artists come from: spotify or lastfm")
	flags.String("lastfm_api_key", "", "last.fm API key, for --related_source=lastfm")
	flags.String("lastfm_secret", "", "last.fm secret, for --related_source=lastfm")

	flags.Duration("timeout", 30*time.Second, "Timeout of each catalog request")
	flags.Float64("rate", 5, "Most catalog requests per second")
	flags.String("log_level", "info", "Log level: debug, info, warn or error")

	flags.String("sendgrid_api_key", "", "SendGrid API key")
	flags.String("from", "", "From email address")
	flags.BoolP("dry_run", "n", false, "When true, just print instead of emailing")

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name != "config" {
			viper.BindPFlag(f.Name, f)
		}
	})
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Reading .env:", err)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".track-clusters" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".track-clusters")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.PersistentFlags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch level {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// required reports the first of keys that has no value.
func required(keys ...string) error {
	for _, k := range keys {
		if viper.GetString(k) == "" {
			return fmt.Errorf("required flag(s) %q not set", k)
		}
	}
	return nil
}

func validateRelatedSource() error {
	switch viper.GetString("related_source") {
	case "", "spotify":
		return nil
	case "lastfm":
		return required("lastfm_api_key", "lastfm_secret")
	default:
		return fmt.Errorf("--related_source must be spotify or lastfm, got %q", viper.GetString("related_source"))
	}
}
