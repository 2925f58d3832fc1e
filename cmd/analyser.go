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
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/ademuri/track-clusters/internal/analysis"
	"github.com/ademuri/track-clusters/internal/kmeans"
	"github.com/ademuri/track-clusters/internal/store"
)

// Analysis is a rendered table: a header row, data rows and a closing line.
type Analysis struct {
	results [][]string
	summary string
}

func (a Analysis) String() string {
	out := new(bytes.Buffer)
	if len(a.results) > 1 {
		table := tablewriter.NewWriter(out)
		table.Header(a.results[0])
		for _, row := range a.results[1:] {
			if err := table.Append(row); err != nil {
				return fmt.Sprintf("Error rendering table: %v", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Sprintf("Error rendering table: %v", err)
		}
	}
	if a.summary != "" {
		fmt.Fprintf(out, "%s\n", a.summary)
	}
	return out.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// clustersAnalysis lists each cluster's size and center, in feature units and
// standardized.
func clustersAnalysis(names []string, clusters []analysis.ClusterSummary, inertia float64) Analysis {
	header := []string{"Cluster", "Tracks"}
	header = append(header, names...)
	for _, n := range names {
		header = append(header, n+" (scaled)")
	}
	header = append(header, "Artists", "Top tracks")

	results := [][]string{header}
	for _, c := range clusters {
		row := []string{strconv.Itoa(c.Label), strconv.Itoa(c.Size)}
		for _, n := range names {
			row = append(row, formatFloat(c.Center[n]))
		}
		for _, v := range c.Scaled {
			row = append(row, formatFloat(v))
		}
		row = append(row, strings.Join(c.Artists, ", "), strings.Join(c.TopTracks, ", "))
		results = append(results, row)
	}
	return Analysis{
		results: results,
		summary: fmt.Sprintf("%d clusters, inertia %s", len(clusters), formatFloat(inertia)),
	}
}

func sweepAnalysis(diags []kmeans.Diagnostic) Analysis {
	results := [][]string{{"k", "Inertia", "Silhouette"}}
	for _, d := range diags {
		results = append(results, []string{strconv.Itoa(d.K), formatFloat(d.Inertia), formatFloat(d.Silhouette)})
	}
	a := Analysis{results: results}
	if best, ok := kmeans.Best(diags); ok {
		a.summary = fmt.Sprintf("Highest silhouette: k=%d (%s)", best.K, formatFloat(best.Silhouette))
	}
	return a
}

func runsAnalysis(runs []store.Run) Analysis {
	results := [][]string{{"ID", "Artist", "Artist ID", "Market", "Related", "Created", "Rows"}}
	for _, r := range runs {
		results = append(results, []string{
			r.ID.String(),
			r.ArtistName,
			r.ArtistID,
			r.Market,
			r.RelatedSource,
			r.Created.Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Rows),
		})
	}
	a := Analysis{results: results}
	if len(runs) == 0 {
		a.summary = "No runs found."
	}
	return a
}
