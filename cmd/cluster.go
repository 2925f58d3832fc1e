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

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ademuri/track-clusters/internal/analysis"
	"github.com/ademuri/track-clusters/internal/dataset"
	"github.com/ademuri/track-clusters/internal/kmeans"
	"github.com/ademuri/track-clusters/internal/store"
)

// tableSource says where a stored track table is read from: a CSV file, a
// run id, or else the newest run of ArtistID.
type tableSource struct {
	DbPath   string
	RunID    string
	CSV      string
	ArtistID string
}

func tableSourceFromFlags(cmd *cobra.Command) tableSource {
	runID, _ := cmd.Flags().GetString("run")
	csvPath, _ := cmd.Flags().GetString("csv")
	return tableSource{
		DbPath:   viper.GetString("database"),
		RunID:    runID,
		CSV:      csvPath,
		ArtistID: viper.GetString("artist_id"),
	}
}

func requireTableSource(cmd *cobra.Command) error {
	src := tableSourceFromFlags(cmd)
	if src.RunID != "" && src.CSV != "" {
		return fmt.Errorf("--run and --csv cannot both be set")
	}
	if src.RunID == "" && src.CSV == "" {
		return required("artist_id")
	}
	return nil
}

func loadTable(ctx context.Context, src tableSource) (*dataset.Table, error) {
	if src.CSV != "" {
		return dataset.LoadCSV(src.CSV)
	}

	db, err := store.New(src.DbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var id uuid.UUID
	if src.RunID != "" {
		id, err = uuid.Parse(src.RunID)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", src.RunID, err)
		}
	} else {
		run, err := db.LatestRun(ctx, src.ArtistID)
		if err != nil {
			return nil, err
		}
		id = run.ID
	}
	return db.LoadRun(ctx, id)
}

// clusterCmd represents the cluster command
var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Clusters a stored track table",
	Long: `Standardizes the configured features of a stored track table, fits k-means
and prints the cluster centers and which clusters each artist's tracks fall
into. Reads the newest run of --artist_id unless --run or --csv is given.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return requireTableSource(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		config, err := clusterConfigFromViper()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		diagPath, _ := cmd.Flags().GetString("diagnostics")
		printTable, _ := cmd.Flags().GetBool("print_table")

		ctx := context.Background()
		t, err := loadTable(ctx, tableSourceFromFlags(cmd))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		res, err := runCluster(t, config, os.Stdout, printTable)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if diagPath != "" {
			if err := writeDiagnostics(diagPath, res, nil); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().String("run", "", "Id of the stored run to cluster")
	clusterCmd.Flags().String("csv", "", "CSV file written by fetch to cluster instead of a stored run")
	clusterCmd.Flags().String("diagnostics", "", "Write points, labels and centers as YAML to this file")
	clusterCmd.Flags().Bool("print_table", false, "Also print the labelled table as CSV")
}

// runCluster fits the table and prints the cluster table followed by the
// artist report.
func runCluster(t *dataset.Table, config ClusterConfig, out io.Writer, printTable bool) (*clusterResult, error) {
	res, err := clusterTable(t, config)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(out, clustersAnalysis(res.Scaled.Names, res.Clusters, res.Model.Inertia))
	fmt.Fprintln(out)
	fmt.Fprint(out, res.Report)
	if printTable {
		fmt.Fprintln(out)
		if err := dataset.WriteCSV(out, res.Annotated); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type diagnosticsDoc struct {
	Features []string                  `yaml:"features"`
	Points   [][]float64               `yaml:"points"`
	Labels   []int                     `yaml:"labels"`
	Inertia  float64                   `yaml:"inertia"`
	Clusters []analysis.ClusterSummary `yaml:"clusters"`
	Report   *analysis.Report          `yaml:"report"`
	Sweep    []kmeans.Diagnostic       `yaml:"sweep,omitempty"`
}

func writeDiagnostics(path string, res *clusterResult, sweep []kmeans.Diagnostic) error {
	n, _ := res.Scaled.Matrix.Dims()
	points := make([][]float64, n)
	for i := range points {
		points[i] = append([]float64(nil), res.Scaled.Matrix.RawRowView(i)...)
	}
	b, err := yaml.Marshal(diagnosticsDoc{
		Features: res.Scaled.Names,
		Points:   points,
		Labels:   res.Model.Labels,
		Inertia:  res.Model.Inertia,
		Clusters: res.Clusters,
		Report:   res.Report,
		Sweep:    sweep,
	})
	if err != nil {
		return fmt.Errorf("encoding diagnostics: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing diagnostics: %w", err)
	}
	return nil
}
