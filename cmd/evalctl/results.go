package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"eval-backend/pkg/api"

	"github.com/spf13/cobra"
)

func newResultsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the results of the last evaluation",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := setup(cmd)
			if err != nil {
				return err
			}
			res, err := client.Results(cmd.Context(), format != "json")
			if err != nil {
				return err
			}
			return renderResults(cmd.OutOrStdout(), res, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format (table, json)")
	return cmd
}

func renderResults(w io.Writer, res *api.ResultsResponse, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "table":
		return renderTable(w, res)
	default:
		return fmt.Errorf("unknown format %q (use table or json)", format)
	}
}

func renderTable(w io.Writer, res *api.ResultsResponse) error {
	if !res.HasResults {
		_, err := fmt.Fprintln(w, res.Message)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if m := res.Metrics; m != nil {
		fmt.Fprintln(tw, "METRIC\tVALUE")
		rows := [][2]string{
			{"Model Name", m.ModelName},
			{"Images", m.NumImages},
			{"Throughput (files/s)", m.Throughput},
			{"Weighted F1", m.F1Score},
			{"Accuracy", m.Accuracy},
			{"Precision", m.Precision},
			{"Recall", m.Recall},
			{"Parameters", m.NumParameters},
			{"Total Time (s)", m.TotalTime},
			{"First Prediction (s)", m.TimeToFirstPrediction},
			{"Last Prediction (s)", m.TimeToLastPrediction},
		}
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
		}
	}

	if p := res.Predictions; p != nil && len(p.Data) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "FILENAME\tCLASS\tCONFIDENCE")
		for _, row := range p.Data {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", row["filename"], row["predicted_class"], row["confidence"])
		}
	}

	if len(res.ParseErrors) > 0 {
		names := make([]string, 0, len(res.ParseErrors))
		for name := range res.ParseErrors {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "MALFORMED ARTIFACT\tERROR")
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%s\n", name, res.ParseErrors[name])
		}
	}

	return tw.Flush()
}
