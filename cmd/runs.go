/*
Copyright 2026 Google LLC

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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/track-clusters/internal/store"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists stored track table snapshots",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		err := listRuns(context.Background(), viper.GetString("database"), viper.GetString("artist_id"), os.Stdout)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

// listRuns prints every snapshot, or only those of artistID when it is set.
func listRuns(ctx context.Context, dbPath string, artistID string, out io.Writer) error {
	db, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	if artistID != "" {
		filtered := runs[:0]
		for _, r := range runs {
			if r.ArtistID == artistID {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}

	fmt.Fprint(out, runsAnalysis(runs))
	return nil
}
