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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/track-clusters/internal/notify"
)

type analyzeOptions struct {
	Diagnostics string
	PrintTable  bool

	// Email, when set, receives the cluster report.
	Email SendEmailConfig
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetches, stores, sweeps and clusters in one run",
	Long: `Runs fetch, then sweep over [k_min, k_max], then cluster with --clusters on the
freshly fetched table. With --email the cluster report is also mailed.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := required("artist_id"); err != nil {
			return err
		}
		if to, _ := cmd.Flags().GetString("email"); to != "" {
			if err := required("from"); err != nil {
				return err
			}
		}
		return validateRelatedSource()
	},
	Run: func(cmd *cobra.Command, args []string) {
		fetchConfig, err := fetchConfigFromViper()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		clusterConfig, err := clusterConfigFromViper()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		var opts analyzeOptions
		opts.Diagnostics, _ = cmd.Flags().GetString("diagnostics")
		opts.PrintTable, _ = cmd.Flags().GetBool("print_table")
		if to, _ := cmd.Flags().GetString("email"); to != "" {
			opts.Email = emailConfigFromViper(to)
		}

		log := newLogger(os.Stderr, viper.GetString("log_level"))
		ctx := context.Background()
		f, err := newFetcher(ctx, fetchConfig, log)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := analyze(ctx, f, fetchConfig, clusterConfig, opts, senderFor(opts.Email), os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("diagnostics", "", "Write points, labels, centers and sweep scores as YAML to this file")
	analyzeCmd.Flags().Bool("print_table", false, "Also print the labelled table as CSV")
	analyzeCmd.Flags().String("email", "", "Email the cluster report to this address")
}

func analyze(ctx context.Context, f *fetcher, fetchConfig FetchConfig, clusterConfig ClusterConfig, opts analyzeOptions, sender notify.Sender, out io.Writer) error {
	_, t, err := fetchAndStore(ctx, f, fetchConfig, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)

	diags, err := runSweep(t, clusterConfig, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)

	report := new(bytes.Buffer)
	res, err := runCluster(t, clusterConfig, io.MultiWriter(out, report), opts.PrintTable)
	if err != nil {
		return err
	}

	if opts.Diagnostics != "" {
		if err := writeDiagnostics(opts.Diagnostics, res, diags); err != nil {
			return err
		}
	}
	if opts.Email.To != "" {
		fmt.Fprintln(out)
		return sendReport(ctx, opts.Email, sender, reportSubject(res, clusterConfig), report.String(), out)
	}
	return nil
}
