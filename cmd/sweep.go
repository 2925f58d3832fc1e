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

	"github.com/spf13/cobra"

	"github.com/ademuri/track-clusters/internal/dataset"
	"github.com/ademuri/track-clusters/internal/kmeans"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Scores cluster counts from --k_min to --k_max",
	Long: `Fits k-means for every cluster count in [k_min, k_max] and prints the inertia
and mean silhouette of each, to help choose --clusters.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return requireTableSource(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		config, err := clusterConfigFromViper()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		t, err := loadTable(context.Background(), tableSourceFromFlags(cmd))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if _, err := runSweep(t, config, os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().String("run", "", "Id of the stored run to score")
	sweepCmd.Flags().String("csv", "", "CSV file written by fetch to score instead of a stored run")
}

func runSweep(t *dataset.Table, config ClusterConfig, out io.Writer) ([]kmeans.Diagnostic, error) {
	diags, err := sweepTable(t, config)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(out, sweepAnalysis(diags))
	return diags, nil
}
