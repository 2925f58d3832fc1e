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

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/track-clusters/internal/store"
)

// deleteRunCmd represents the deleteRun command
var deleteRunCmd = &cobra.Command{
	Use:   "delete-run <id>",
	Short: "Deletes a stored snapshot and its rows",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("delete-run needs exactly one run id")
		}
		if _, err := uuid.Parse(args[0]); err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		err := deleteRun(context.Background(), viper.GetString("database"), uuid.MustParse(args[0]), os.Stdout)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteRunCmd)
}

func deleteRun(ctx context.Context, dbPath string, id uuid.UUID, out io.Writer) error {
	db, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if err := db.DeleteRun(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(out, "Deleted run %s (%s, %d rows)\n", id, run.ArtistName, run.Rows)
	return nil
}
