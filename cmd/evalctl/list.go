package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the staged dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := setup(cmd)
			if err != nil {
				return err
			}
			res, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d staged files\n", res.Count)
			for _, name := range res.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
			}
			return nil
		},
	}
}
