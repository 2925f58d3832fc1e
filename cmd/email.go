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

	"github.com/ademuri/track-clusters/internal/dataset"
	"github.com/ademuri/track-clusters/internal/notify"
)

type SendEmailConfig struct {
	From   string
	To     string
	APIKey string
	DryRun bool
}

var emailCmd = &cobra.Command{
	Use:   "email <address>",
	Short: "Emails the cluster report of a stored track table",
	Long: `Clusters a stored track table, as the cluster command does, and emails the
cluster table and artist report to <address>.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := required("from"); err != nil {
			return err
		}
		return requireTableSource(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		clusterConfig, err := clusterConfigFromViper()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		config := emailConfigFromViper(args[0])

		ctx := context.Background()
		t, err := loadTable(ctx, tableSourceFromFlags(cmd))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		subject, body, err := clusterEmail(t, clusterConfig)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := sendReport(ctx, config, senderFor(config), subject, body, os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	emailCmd.Flags().String("run", "", "Id of the stored run to report on")
	emailCmd.Flags().String("csv", "", "CSV file written by fetch to report on instead of a stored run")
}

func emailConfigFromViper(to string) SendEmailConfig {
	return SendEmailConfig{
		From:   viper.GetString("from"),
		To:     to,
		APIKey: viper.GetString("sendgrid_api_key"),
		DryRun: viper.GetBool("dry_run"),
	}
}

func senderFor(config SendEmailConfig) notify.Sender {
	return notify.SendGrid{APIKey: config.APIKey, From: config.From}
}

// clusterEmail renders the same output as the cluster command as a mail.
func clusterEmail(t *dataset.Table, config ClusterConfig) (subject string, body string, err error) {
	out := new(bytes.Buffer)
	res, err := runCluster(t, config, out, false)
	if err != nil {
		return "", "", err
	}
	return reportSubject(res, config), out.String(), nil
}

func reportSubject(res *clusterResult, config ClusterConfig) string {
	artist := "tracks"
	if len(res.Report.Artists) > 0 {
		artist = res.Report.Artists[0].Artist
	}
	return fmt.Sprintf("Track clusters for %s: %d tracks in %d clusters", artist, res.Annotated.Len(), config.K)
}

func sendReport(ctx context.Context, config SendEmailConfig, sender notify.Sender, subject, body string, out io.Writer) error {
	if config.DryRun {
		fmt.Fprintf(out, "Would have sent email: \nsubject: %s\n%s\n", subject, body)
		return nil
	}
	if err := sender.Send(ctx, config.To, subject, body); err != nil {
		return fmt.Errorf("sendEmail: %w", err)
	}
	fmt.Fprintf(out, "Sent report to %s\n", config.To)
	return nil
}
