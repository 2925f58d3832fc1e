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
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/ademuri/track-clusters/internal/kmeans"
)

// spotifyEnv is read from SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET.
type spotifyEnv struct {
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
}

type FetchConfig struct {
	DbPath     string
	Output     string
	ArtistID   string
	ArtistName string
	Market     string

	ClientID     string
	ClientSecret string

	RelatedSource string
	LastfmAPIKey  string
	LastfmSecret  string

	Timeout time.Duration
	Rate    float64
}

type ClusterConfig struct {
	Features []string
	K        int
	Options  kmeans.Options
	KMin     int
	KMax     int

	// TopN is how many tracks each cluster summary names.
	TopN int
}

// fetchConfigFromViper fills credentials missing from flags and config from
// the environment.
func fetchConfigFromViper() (FetchConfig, error) {
	config := FetchConfig{
		DbPath:        viper.GetString("database"),
		Output:        viper.GetString("output"),
		ArtistID:      viper.GetString("artist_id"),
		ArtistName:    viper.GetString("artist_name"),
		Market:        viper.GetString("market"),
		ClientID:      viper.GetString("client_id"),
		ClientSecret:  viper.GetString("client_secret"),
		RelatedSource: viper.GetString("related_source"),
		LastfmAPIKey:  viper.GetString("lastfm_api_key"),
		LastfmSecret:  viper.GetString("lastfm_secret"),
		Timeout:       viper.GetDuration("timeout"),
		Rate:          viper.GetFloat64("rate"),
	}

	var env spotifyEnv
	if err := envconfig.Process("spotify", &env); err != nil {
		return config, fmt.Errorf("reading SPOTIFY_* environment: %w", err)
	}
	if config.ClientID == "" {
		config.ClientID = env.ClientID
	}
	if config.ClientSecret == "" {
		config.ClientSecret = env.ClientSecret
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return config, fmt.Errorf("required flag(s) \"client_id\", \"client_secret\" not set (or SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET)")
	}
	return config, nil
}

func clusterConfigFromViper() (ClusterConfig, error) {
	config := ClusterConfig{
		Features: viper.GetStringSlice("features"),
		K:        viper.GetInt("clusters"),
		Options: kmeans.Options{
			Init:  kmeans.InitPolicy(viper.GetString("init")),
			Seed:  viper.GetInt64("seed"),
			NInit: viper.GetInt("n_init"),
		},
		KMin: viper.GetInt("k_min"),
		KMax: viper.GetInt("k_max"),
		TopN: 5,
	}
	if len(config.Features) != 2 {
		return config, fmt.Errorf("--features needs exactly two names, got %d", len(config.Features))
	}
	if config.K < 1 {
		return config, fmt.Errorf("--clusters must be positive, got %d", config.K)
	}
	if config.KMin > config.KMax {
		return config, fmt.Errorf("--k_min (%d) is greater than --k_max (%d)", config.KMin, config.KMax)
	}
	return config, nil
}
