package main

import (
	"errors"
	"fmt"

	"eval-backend/pkg/api"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		mock     bool
		pipeline string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evaluation against the staged dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := setup(cmd)
			if err != nil {
				return err
			}

			req := api.EvaluateRequest{PipelineIdentifier: cfg.Pipeline, OutputFilename: cfg.OutputFilename}
			if cmd.Flags().Changed("pipeline") {
				req.PipelineIdentifier = pipeline
			}
			if cmd.Flags().Changed("output") {
				req.OutputFilename = output
			}

			out := cmd.OutOrStdout()

			if mock {
				res, err := client.MockEvaluate(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, res.Output)
				fmt.Fprintln(out, res.Message)
				return nil
			}

			res, err := client.Evaluate(cmd.Context(), req)
			if err != nil {
				var serr *ServerError
				if errors.As(err, &serr) {
					if serr.Stdout != "" {
						fmt.Fprintln(out, serr.Stdout)
					}
					if serr.Stderr != "" {
						fmt.Fprintln(cmd.ErrOrStderr(), serr.Stderr)
					}
				}
				return err
			}
			fmt.Fprintln(out, res.Output)
			if res.Stderr != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), res.Stderr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&mock, "mock", false, "generate synthetic results instead of running the pipeline")
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "pipeline identifier (container image)")
	cmd.Flags().StringVar(&output, "output", "", "predictions file name")
	return cmd
}
